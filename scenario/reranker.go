// Copyright 2026 RePlay Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scenario

import (
	"io"
	"time"

	"github.com/chewxy/math32"
	"github.com/juju/errors"
	"github.com/replay-rec/replay/base/encoding"
	"github.com/replay-rec/replay/base/log"
	"github.com/replay-rec/replay/common/floats"
	"github.com/replay-rec/replay/model"
	"go.uber.org/zap"
)

// Reranker is a logistic regression over candidate features, trained with
// stochastic gradient descent. It orders the candidates of the first stage by
// the probability of a positive interaction.
type Reranker struct {
	model.BaseModel
	Weights []float32
	Bias    float32
	// Hyper parameters
	lr      float32
	reg     float32
	nEpochs int
}

func NewReranker(params model.Params) *Reranker {
	r := new(Reranker)
	r.SetParams(params)
	return r
}

func (r *Reranker) SetParams(params model.Params) {
	r.BaseModel.SetParams(params)
	r.lr = r.Params.GetFloat32(model.Lr, 0.1)
	r.reg = r.Params.GetFloat32(model.Reg, 0.001)
	r.nEpochs = r.Params.GetInt(model.NEpochs, 50)
}

func (r *Reranker) Clear() {
	r.Weights = nil
	r.Bias = 0
}

func (r *Reranker) Invalid() bool {
	return r == nil || r.Weights == nil
}

func (r *Reranker) GetParamsGrid(_ bool) model.ParamsGrid {
	return model.ParamsGrid{
		model.Lr:      []interface{}{0.01, 0.05, 0.1},
		model.Reg:     []interface{}{0.0001, 0.001, 0.01},
		model.NEpochs: []interface{}{20, 50, 100},
	}
}

// Fit trains the regression on feature rows with binary labels.
func (r *Reranker) Fit(features [][]float32, labels []float32) error {
	if len(features) != len(labels) {
		return errors.Errorf("expect %v labels, got %v", len(features), len(labels))
	}
	if len(features) == 0 {
		return errors.New("empty train set")
	}
	numFeatures := len(features[0])
	for _, row := range features {
		if len(row) != numFeatures {
			return errors.Errorf("expect %v features, got %v", numFeatures, len(row))
		}
	}
	log.Logger().Info("fit reranker",
		zap.Int("train_set_size", len(features)),
		zap.Int("num_features", numFeatures),
		zap.Any("params", r.GetParams()))
	fitStart := time.Now()
	rng := r.GetRandomGenerator()
	r.Weights = make([]float32, numFeatures)
	r.Bias = 0
	for epoch := 0; epoch < r.nEpochs; epoch++ {
		for _, i := range rng.Perm(len(features)) {
			pred := r.Predict(features[i])
			grad := pred - labels[i]
			for j, x := range features[i] {
				r.Weights[j] -= r.lr * (grad*x + r.reg*r.Weights[j])
			}
			r.Bias -= r.lr * grad
		}
	}
	log.Logger().Info("fit reranker complete",
		zap.String("fit_time", time.Since(fitStart).String()))
	return nil
}

// Predict returns the probability of a positive interaction.
func (r *Reranker) Predict(features []float32) float32 {
	if r.Invalid() {
		return 0
	}
	return sigmoid(floats.Dot(r.Weights, features) + r.Bias)
}

func (r *Reranker) Marshal(w io.Writer) error {
	if err := encoding.WriteGob(w, r.Params); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, r.Weights); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(encoding.WriteGob(w, r.Bias))
}

func (r *Reranker) Unmarshal(reader io.Reader) error {
	if err := encoding.ReadGob(reader, &r.Params); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(reader, &r.Weights); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(reader, &r.Bias); err != nil {
		return errors.Trace(err)
	}
	r.SetParams(r.Params)
	return nil
}

func sigmoid(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}
