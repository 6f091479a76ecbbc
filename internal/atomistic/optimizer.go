package atomistic

import (
	"math"

	"github.com/gulsumgudukbay/schnetpack-OOD/internal/registry"
)

// Optimizer applies one gradient step to the parameter vector in place.
type Optimizer interface {
	Step(params, grads []float64)
	LR() float64
	SetLR(lr float64)
}

var Optimizers = registry.New[Optimizer]("optimizer")

type SGD struct {
	lr       float64
	momentum float64
	velocity []float64
}

func NewSGD(lr, momentum float64) *SGD {
	return &SGD{lr: lr, momentum: momentum}
}

func (o *SGD) LR() float64      { return o.lr }
func (o *SGD) SetLR(lr float64) { o.lr = lr }

func (o *SGD) Step(params, grads []float64) {
	if o.velocity == nil {
		o.velocity = make([]float64, len(params))
	}
	for i := range params {
		o.velocity[i] = o.momentum*o.velocity[i] + grads[i]
		params[i] -= o.lr * o.velocity[i]
	}
}

type Adam struct {
	lr    float64
	beta1 float64
	beta2 float64
	eps   float64
	m     []float64
	v     []float64
	t     int
}

func NewAdam(lr, beta1, beta2, eps float64) *Adam {
	return &Adam{lr: lr, beta1: beta1, beta2: beta2, eps: eps}
}

func (o *Adam) LR() float64      { return o.lr }
func (o *Adam) SetLR(lr float64) { o.lr = lr }

func (o *Adam) Step(params, grads []float64) {
	if o.m == nil {
		o.m = make([]float64, len(params))
		o.v = make([]float64, len(params))
	}
	o.t++
	c1 := 1 - math.Pow(o.beta1, float64(o.t))
	c2 := 1 - math.Pow(o.beta2, float64(o.t))
	for i := range params {
		o.m[i] = o.beta1*o.m[i] + (1-o.beta1)*grads[i]
		o.v[i] = o.beta2*o.v[i] + (1-o.beta2)*grads[i]*grads[i]
		mHat := o.m[i] / c1
		vHat := o.v[i] / c2
		params[i] -= o.lr * mHat / (math.Sqrt(vHat) + o.eps)
	}
}

func init() {
	Optimizers.Register("sgd", func(args registry.Args) (Optimizer, error) {
		return NewSGD(args.Float("lr", 0.01), args.Float("momentum", 0)), nil
	})
	Optimizers.Register("adam", func(args registry.Args) (Optimizer, error) {
		return NewAdam(
			args.Float("lr", 0.001),
			args.Float("beta1", 0.9),
			args.Float("beta2", 0.999),
			args.Float("eps", 1e-8),
		), nil
	})
}
