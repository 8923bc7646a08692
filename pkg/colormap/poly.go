package colormap

// Polynomial fits of the matplotlib colormaps, degree 6, minimax error.
// Coefficients from https://www.shadertoy.com/view/WlfXRN (CC0), fitted to
// the data in https://github.com/BIDS/colormap (CC0).

// vec3 holds one coefficient for each of the R, G and B channels.
type vec3 [3]float64

// poly6 holds the coefficients c0..c6 of a per-channel polynomial.
type poly6 [7]vec3

// eval computes c0 + t*(c1 + t*(c2 + ... + t*c6)) for each channel.
func (p *poly6) eval(t float64) Sample {
	var out [3]float64
	for ch := 0; ch < 3; ch++ {
		v := p[6][ch]
		for i := 5; i >= 0; i-- {
			// The conversion rounds the product and keeps the compiler
			// from fusing it into an FMA.
			v = p[i][ch] + float64(t*v)
		}
		out[ch] = v
	}
	return Sample{R: out[0], G: out[1], B: out[2]}
}

var viridis = poly6{
	{0.2777273272234177, 0.005407344544966578, 0.3340998053353061},
	{0.1050930431085774, 1.404613529898575, 1.384590162594685},
	{-0.3308618287255563, 0.214847559468213, 0.09509516302823659},
	{-4.634230498983486, -5.799100973351585, -19.33244095627987},
	{6.228269936347081, 14.17993336680509, 56.69055260068105},
	{4.776384997670288, -13.74514537774601, -65.35303263337234},
	{-5.435455855934631, 4.645852612178535, 26.3124352495832},
}

var plasma = poly6{
	{0.05873234392399702, 0.02333670892565664, 0.5433401826748754},
	{2.176514634195958, 0.2383834171260182, 0.7539604599784036},
	{-2.689460476458034, -7.455851135738909, 3.110799939717086},
	{6.130348345893603, 42.3461881477227, -28.51885465332158},
	{-11.10743619062271, -82.66631109428045, 60.13984767418263},
	{10.02306557647065, 71.41361770095349, -54.07218655560067},
	{-3.658713842777788, -22.93153465461149, 18.19190778539828},
}

var magma = poly6{
	{-0.002136485053939582, -0.000749655052795221, -0.005386127855323933},
	{0.2516605407371642, 0.6775232436837668, 2.494026599312351},
	{8.353717279216625, -3.577719514958484, 0.3144679030132573},
	{-27.66873308576866, 14.26473078096533, -13.64921318813922},
	{52.17613981234068, -27.94360607168351, 12.94416944238394},
	{-50.76852536473588, 29.04658282127291, 4.23415299384598},
	{18.65570506591883, -11.48977351997711, -5.601961508734096},
}

var inferno = poly6{
	{0.0002189403691192265, 0.001651004631001012, -0.01948089843709184},
	{0.1065134194856116, 0.5639564367884091, 3.932712388889277},
	{11.60249308247187, -3.972853965665698, -15.9423941062914},
	{-41.70399613139459, 17.43639888205313, 44.35414519872813},
	{77.162935699427, -33.40235894210092, -81.80730925738993},
	{-71.31942824499214, 32.62606426397723, 73.20951985803202},
	{25.13112622477341, -12.24266895238567, -23.07032500287172},
}

// jet is the MATLAB jet colormap: three tents over [-1, 1], shifted by half
// a unit per channel.
func jet(t float64) Sample {
	u := 2*t - 1
	return Sample{
		R: tent(u - 0.5),
		G: tent(u),
		B: tent(u + 0.5),
	}
}

func tent(v float64) float64 {
	switch {
	case v <= -0.75:
		return 0
	case v <= -0.25:
		return lerp(v, 0, -0.75, 1, -0.25)
	case v <= 0.25:
		return 1
	case v <= 0.75:
		return lerp(v, 1, 0.25, 0, 0.75)
	}
	return 0
}

// lerp evaluates the line through (x0, y0) and (x1, y1) at v.
func lerp(v, y0, x0, y1, x1 float64) float64 {
	return (v-x0)*(y1-y0)/(x1-x0) + y0
}
