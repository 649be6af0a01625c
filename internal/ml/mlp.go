package ml

import (
	"context"
	"math"
	"math/rand/v2"
)

// NetworkParams configures the multi-layer perceptron family
type NetworkParams struct {
	Hidden       []int   `mapstructure:"hidden"`
	MaxEpochs    int     `mapstructure:"max_epochs"`
	BatchSize    int     `mapstructure:"batch_size"`
	LearningRate float64 `mapstructure:"learning_rate"`
	Alpha        float64 `mapstructure:"alpha"`
	Patience     int     `mapstructure:"patience"`
	Tol          float64 `mapstructure:"tol"`
}

// targetScale maps number targets into roughly unit range for training
const targetScale = 45.0

type denseLayer struct {
	in, out int
	w       []float64 // out x in, row major
	b       []float64

	// Adam moments
	mw, vw []float64
	mb, vb []float64
}

func newDenseLayer(in, out int, rng *rand.Rand) *denseLayer {
	l := &denseLayer{
		in: in, out: out,
		w: make([]float64, in*out), b: make([]float64, out),
		mw: make([]float64, in*out), vw: make([]float64, in*out),
		mb: make([]float64, out), vb: make([]float64, out),
	}
	std := math.Sqrt(2.0 / float64(in))
	for i := range l.w {
		l.w[i] = rng.NormFloat64() * std
	}
	return l
}

func (l *denseLayer) forward(x, out []float64) {
	for o := 0; o < l.out; o++ {
		s := l.b[o]
		row := l.w[o*l.in : (o+1)*l.in]
		for i, v := range x {
			s += row[i] * v
		}
		out[o] = s
	}
}

// perceptron is a fully connected ReLU network with a linear output layer
type perceptron struct {
	layers []*denseLayer
}

func newPerceptron(sizes []int, rng *rand.Rand) *perceptron {
	p := &perceptron{}
	for i := 0; i+1 < len(sizes); i++ {
		p.layers = append(p.layers, newDenseLayer(sizes[i], sizes[i+1], rng))
	}
	return p
}

// activations returns the output of every layer for x; hidden layers are post-ReLU
func (p *perceptron) activations(x []float64) [][]float64 {
	acts := make([][]float64, len(p.layers)+1)
	acts[0] = x
	for li, l := range p.layers {
		out := make([]float64, l.out)
		l.forward(acts[li], out)
		if li < len(p.layers)-1 {
			for i, v := range out {
				if v < 0 {
					out[i] = 0
				}
			}
		}
		acts[li+1] = out
	}
	return acts
}

func (p *perceptron) predict(x []float64) []float64 {
	acts := p.activations(x)
	out := acts[len(acts)-1]
	res := make([]float64, len(out))
	for k, v := range out {
		res[k] = v * targetScale
	}
	return res
}

type adamState struct {
	rate, beta1, beta2, eps float64
	step                    int
}

func (a *adamState) update(params, grads, m, v []float64, scale float64) {
	c1 := 1 - math.Pow(a.beta1, float64(a.step))
	c2 := 1 - math.Pow(a.beta2, float64(a.step))
	for i, g := range grads {
		g *= scale
		m[i] = a.beta1*m[i] + (1-a.beta1)*g
		v[i] = a.beta2*v[i] + (1-a.beta2)*g*g
		params[i] -= a.rate * (m[i] / c1) / (math.Sqrt(v[i]/c2) + a.eps)
	}
}

// fitPerceptron trains with minibatch Adam on squared error plus L2 penalty.
// Training stops after MaxEpochs or once the epoch loss fails to improve by
// Tol for Patience consecutive epochs.
func fitPerceptron(ctx context.Context, X, Y [][]float64, p NetworkParams, rng *rand.Rand) (*perceptron, error) {
	sizes := append([]int{len(X[0])}, p.Hidden...)
	sizes = append(sizes, len(Y[0]))
	net := newPerceptron(sizes, rng)

	batch := p.BatchSize
	if batch <= 0 || batch > len(X) {
		batch = len(X)
	}
	opt := &adamState{rate: p.LearningRate, beta1: 0.9, beta2: 0.999, eps: 1e-8}

	gw := make([][]float64, len(net.layers))
	gb := make([][]float64, len(net.layers))
	for i, l := range net.layers {
		gw[i] = make([]float64, len(l.w))
		gb[i] = make([]float64, len(l.b))
	}

	order := make([]int, len(X))
	for i := range order {
		order[i] = i
	}
	best := math.Inf(1)
	stale := 0
	for epoch := 0; epoch < p.MaxEpochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		loss := 0.0
		for start := 0; start < len(order); start += batch {
			end := start + batch
			if end > len(order) {
				end = len(order)
			}
			for i := range gw {
				clear(gw[i])
				clear(gb[i])
			}
			for _, row := range order[start:end] {
				loss += net.backprop(X[row], Y[row], gw, gb)
			}
			opt.step++
			n := float64(end - start)
			for li, l := range net.layers {
				for i := range gw[li] {
					gw[li][i] += p.Alpha * l.w[i]
				}
				opt.update(l.w, gw[li], l.mw, l.vw, 1/n)
				opt.update(l.b, gb[li], l.mb, l.vb, 1/n)
			}
		}
		loss /= float64(len(X))
		if loss > best-p.Tol {
			stale++
			if p.Patience > 0 && stale >= p.Patience {
				break
			}
		} else {
			stale = 0
		}
		if loss < best {
			best = loss
		}
	}
	return net, nil
}

// backprop accumulates gradients of 0.5*squared error for one sample and returns its loss
func (p *perceptron) backprop(x, y []float64, gw, gb [][]float64) float64 {
	acts := p.activations(x)
	out := acts[len(acts)-1]
	delta := make([]float64, len(out))
	loss := 0.0
	for k := range out {
		d := out[k] - y[k]/targetScale
		delta[k] = d
		loss += 0.5 * d * d
	}
	for li := len(p.layers) - 1; li >= 0; li-- {
		l := p.layers[li]
		in := acts[li]
		for o := 0; o < l.out; o++ {
			d := delta[o]
			if d == 0 {
				continue
			}
			gb[li][o] += d
			row := gw[li][o*l.in : (o+1)*l.in]
			for i, v := range in {
				row[i] += d * v
			}
		}
		if li == 0 {
			break
		}
		prev := make([]float64, l.in)
		for o := 0; o < l.out; o++ {
			d := delta[o]
			if d == 0 {
				continue
			}
			row := l.w[o*l.in : (o+1)*l.in]
			for i := range prev {
				prev[i] += row[i] * d
			}
		}
		for i := range prev {
			if in[i] <= 0 {
				prev[i] = 0
			}
		}
		delta = prev
	}
	return loss
}
