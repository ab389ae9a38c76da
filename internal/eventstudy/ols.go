package eventstudy

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// VCovType selects the variance-covariance estimator for the interacted
// regression.
type VCovType string

const (
	// VCovRobust is the heteroskedasticity-robust (HC1) estimator. Default.
	VCovRobust VCovType = "robust"
	// VCovHomoskedastic is the classical spherical-errors estimator.
	VCovHomoskedastic VCovType = "homoskedastic"
)

// olsFit holds coefficient estimates and their standard errors.
type olsFit struct {
	coef []float64
	se   []float64
	dof  int // residual degrees of freedom used for inference
}

// fitOLS solves y = X b by QR and computes standard errors. dofAdjust is the
// number of parameters absorbed outside X (fixed effects), subtracted from
// the residual degrees of freedom.
func fitOLS(x *mat.Dense, y []float64, vcov VCovType, dofAdjust int) (*olsFit, error) {
	n, k := x.Dims()
	if n != len(y) {
		return nil, fmt.Errorf("fit: %d rows in X, %d in y", n, len(y))
	}

	dof := n - k - dofAdjust
	if dof < 0 {
		return nil, fmt.Errorf("fit: %w: %d observations, %d parameters", ErrRankDeficient, n, k+dofAdjust)
	}

	yv := mat.NewVecDense(n, y)

	var qr mat.QR
	qr.Factorize(x)

	var coefVec mat.VecDense
	if err := qr.SolveVecTo(&coefVec, false, yv); err != nil {
		return nil, fmt.Errorf("fit: %w: %v", ErrRankDeficient, err)
	}

	// Residuals.
	var fitted mat.VecDense
	fitted.MulVec(x, &coefVec)
	resid := make([]float64, n)
	for i := 0; i < n; i++ {
		resid[i] = y[i] - fitted.AtVec(i)
	}

	// (X'X)^-1 via the normal equations on the factorized design.
	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, fmt.Errorf("fit: %w: %v", ErrRankDeficient, err)
	}

	se := make([]float64, k)
	if dof == 0 {
		// Saturated regression: the fit is exact and there is no residual
		// variation to estimate errors from. Coefficients stand, errors are
		// zero.
		coef := make([]float64, k)
		for j := 0; j < k; j++ {
			coef[j] = coefVec.AtVec(j)
		}
		return &olsFit{coef: coef, se: se, dof: 0}, nil
	}

	switch vcov {
	case VCovHomoskedastic:
		var sse float64
		for _, e := range resid {
			sse += e * e
		}
		sigma2 := sse / float64(dof)
		for j := 0; j < k; j++ {
			se[j] = sqrt(sigma2 * xtxInv.At(j, j))
		}

	default: // VCovRobust
		// HC1: (X'X)^-1 X' diag(e^2) X (X'X)^-1, scaled by n/dof.
		scaled := mat.NewDense(n, k, nil)
		for i := 0; i < n; i++ {
			e2 := resid[i] * resid[i]
			for j := 0; j < k; j++ {
				scaled.Set(i, j, x.At(i, j)*e2)
			}
		}
		var meat mat.Dense
		meat.Mul(x.T(), scaled)

		var tmp, sandwich mat.Dense
		tmp.Mul(&xtxInv, &meat)
		sandwich.Mul(&tmp, &xtxInv)

		scale := float64(n) / float64(dof)
		for j := 0; j < k; j++ {
			se[j] = sqrt(scale * sandwich.At(j, j))
		}
	}

	coef := make([]float64, k)
	for j := 0; j < k; j++ {
		coef[j] = coefVec.AtVec(j)
	}

	return &olsFit{coef: coef, se: se, dof: dof}, nil
}

// tCritical returns the two-sided Student-t critical value at level alpha.
func tCritical(alpha float64, dof int) float64 {
	if dof <= 0 {
		dof = 1
	}
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(dof)}
	return dist.Quantile(1 - alpha/2)
}

func sqrt(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Sqrt(v)
}
