// Package inference talks to the model server that hosts the pretrained face
// detector and embedding networks. The networks are opaque: callers hand over a
// preprocessed input tensor and get the raw output tensor back.
package inference

import (
	"context"
	"errors"
	"fmt"
)

// ErrModelLoad is returned when a model cannot be loaded or probed at startup.
var ErrModelLoad = errors.New("model load failure")

// Tensor is a dense float32 tensor in row-major order.
type Tensor struct {
	Shape []int     `msgpack:"shape" json:"shape"`
	Data  []float32 `msgpack:"data" json:"data"`
}

// NewTensor allocates a zeroed tensor with the given shape.
func NewTensor(shape ...int) Tensor {
	return Tensor{Shape: append([]int(nil), shape...), Data: make([]float32, numElements(shape))}
}

// Len returns the number of elements implied by the shape.
func (t Tensor) Len() int {
	return numElements(t.Shape)
}

// Validate checks that the data length matches the shape.
func (t Tensor) Validate() error {
	if len(t.Shape) == 0 {
		return errors.New("tensor has no shape")
	}
	for _, d := range t.Shape {
		if d < 0 {
			return fmt.Errorf("tensor shape %v has negative dimension", t.Shape)
		}
	}
	if n := t.Len(); n != len(t.Data) {
		return fmt.Errorf("tensor shape %v needs %d values, got %d", t.Shape, n, len(t.Data))
	}
	return nil
}

func numElements(shape []int) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// Network runs forward inference for one loaded model.
type Network interface {
	Forward(ctx context.Context, input Tensor) (Tensor, error)
}

// NetworkFunc adapts a function to the Network interface.
type NetworkFunc func(ctx context.Context, input Tensor) (Tensor, error)

// Forward calls f.
func (f NetworkFunc) Forward(ctx context.Context, input Tensor) (Tensor, error) {
	return f(ctx, input)
}
