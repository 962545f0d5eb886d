package pnp

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// coplanarTolerance is the largest out of plane distance allowed, relative to the pattern extent.
const coplanarTolerance = 1e-6

// estimateHomography returns H with dst ~ H*src, estimated by the direct linear transform over
// normalized points as described in Multiple View Geometry, Alg 4.2.
func estimateHomography(src, dst []r2.Point) (*mat.Dense, error) {
	if len(src) != len(dst) {
		return nil, errors.New("sets of points src and dst must have the same number of elements")
	}
	if len(src) < 4 {
		return nil, errors.New("sets of points must have at least 4 elements")
	}
	srcN, srcT, _, err := normalizePoints(src)
	if err != nil {
		return nil, err
	}
	dstN, _, dstTInv, err := normalizePoints(dst)
	if err != nil {
		return nil, err
	}

	// four points give an 8x9 system; pad so the full SVD always has a ninth right singular vector
	rows := 2 * len(src)
	if rows < 9 {
		rows = 9
	}
	a := mat.NewDense(rows, 9, nil)
	for i := range srcN {
		x, y := srcN[i].X, srcN[i].Y
		u, v := dstN[i].X, dstN[i].Y
		a.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		a.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDFull); !ok {
		return nil, errors.New("homography factorization failed")
	}
	var vMat mat.Dense
	svd.VTo(&vMat)
	h := make([]float64, 9)
	for i := range h {
		h[i] = vMat.At(i, 8)
	}
	hn := mat.NewDense(3, 3, h)

	// undo the normalization: H = T_dst^-1 * H_n * T_src
	var tmp, out mat.Dense
	tmp.Mul(dstTInv, hn)
	out.Mul(&tmp, srcT)
	if s := out.At(2, 2); math.Abs(s) > 1e-12 {
		out.Scale(1/s, &out)
	}
	return &out, nil
}

// normalizePoints moves the centroid to the origin and scales the mean distance to sqrt(2). It
// returns the transformed points, the transform and its inverse.
func normalizePoints(pts []r2.Point) ([]r2.Point, *mat.Dense, *mat.Dense, error) {
	n := float64(len(pts))
	var mu r2.Point
	for _, pt := range pts {
		mu = mu.Add(pt)
	}
	mu = mu.Mul(1 / n)
	d := 0.0
	for _, pt := range pts {
		d += pt.Sub(mu).Norm() / n
	}
	if d < 1e-12 {
		return nil, nil, nil, errors.New("points are degenerate")
	}
	scale := math.Sqrt2 / d
	t := mat.NewDense(3, 3, []float64{
		scale, 0, -scale * mu.X,
		0, scale, -scale * mu.Y,
		0, 0, 1,
	})
	tInv := mat.NewDense(3, 3, []float64{
		1 / scale, 0, mu.X,
		0, 1 / scale, mu.Y,
		0, 0, 1,
	})
	out := make([]r2.Point, len(pts))
	for i, pt := range pts {
		out[i] = pt.Sub(mu).Mul(scale)
	}
	return out, t, tInv, nil
}

// planeFrame expresses coplanar object points in a frame whose z axis is the plane normal. The
// columns of basis are that frame's axes in object coordinates, so p = origin + basis*(x, y, 0).
type planeFrame struct {
	origin r3.Vector
	basis  *mat.Dense
	local  []r2.Point
}

func newPlaneFrame(obj []r3.Vector) (*planeFrame, error) {
	flat := true
	for _, p := range obj {
		if math.Abs(p.Z) > 1e-12 {
			flat = false
			break
		}
	}
	if flat {
		local := make([]r2.Point, len(obj))
		for i, p := range obj {
			local[i] = r2.Point{X: p.X, Y: p.Y}
		}
		return &planeFrame{basis: identity3(), local: local}, nil
	}

	var origin r3.Vector
	for _, p := range obj {
		origin = origin.Add(p)
	}
	origin = origin.Mul(1 / float64(len(obj)))
	centered := mat.NewDense(len(obj), 3, nil)
	extent := 0.0
	for i, p := range obj {
		c := p.Sub(origin)
		centered.SetRow(i, []float64{c.X, c.Y, c.Z})
		extent = math.Max(extent, c.Norm())
	}
	var svd mat.SVD
	if ok := svd.Factorize(centered, mat.SVDThinV); !ok {
		return nil, errors.New("object plane factorization failed")
	}
	var v mat.Dense
	svd.VTo(&v)
	e1 := r3.Vector{X: v.At(0, 0), Y: v.At(1, 0), Z: v.At(2, 0)}
	e2 := r3.Vector{X: v.At(0, 1), Y: v.At(1, 1), Z: v.At(2, 1)}
	normal := e1.Cross(e2)

	local := make([]r2.Point, len(obj))
	for i, p := range obj {
		c := p.Sub(origin)
		if math.Abs(c.Dot(normal)) > coplanarTolerance*math.Max(extent, 1) {
			return nil, errors.Wrap(ErrSolveFailed, "object points are not coplanar")
		}
		local[i] = r2.Point{X: c.Dot(e1), Y: c.Dot(e2)}
	}
	basis := mat.NewDense(3, 3, []float64{
		e1.X, e2.X, normal.X,
		e1.Y, e2.Y, normal.Y,
		e1.Z, e2.Z, normal.Z,
	})
	return &planeFrame{origin: origin, basis: basis, local: local}, nil
}

// decomposeHomography recovers the plane to camera rotation and translation from a homography
// mapping plane coordinates to normalized image coordinates.
func decomposeHomography(h *mat.Dense) (*mat.Dense, r3.Vector, error) {
	h1 := r3.Vector{X: h.At(0, 0), Y: h.At(1, 0), Z: h.At(2, 0)}
	h2 := r3.Vector{X: h.At(0, 1), Y: h.At(1, 1), Z: h.At(2, 1)}
	h3 := r3.Vector{X: h.At(0, 2), Y: h.At(1, 2), Z: h.At(2, 2)}
	norm := (h1.Norm() + h2.Norm()) / 2
	if norm < 1e-12 {
		return nil, r3.Vector{}, errors.Wrap(ErrSolveFailed, "homography is degenerate")
	}
	lambda := 1 / norm
	// the pattern must be in front of the camera
	if h3.Z < 0 {
		lambda = -lambda
	}
	r1 := h1.Mul(lambda)
	r2v := h2.Mul(lambda)
	r3v := r1.Cross(r2v)
	t := h3.Mul(lambda)

	approx := mat.NewDense(3, 3, []float64{
		r1.X, r2v.X, r3v.X,
		r1.Y, r2v.Y, r3v.Y,
		r1.Z, r2v.Z, r3v.Z,
	})
	rot, err := nearestRotation(approx)
	if err != nil {
		return nil, r3.Vector{}, err
	}
	return rot, t, nil
}

// nearestRotation projects m onto SO(3) in the Frobenius sense.
func nearestRotation(m *mat.Dense) (*mat.Dense, error) {
	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDFull); !ok {
		return nil, errors.New("rotation factorization failed")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	var rot mat.Dense
	rot.Mul(&u, v.T())
	if mat.Det(&rot) < 0 {
		for i := 0; i < 3; i++ {
			u.Set(i, 2, -u.At(i, 2))
		}
		rot.Mul(&u, v.T())
	}
	return &rot, nil
}

func identity3() *mat.Dense {
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
}
