package bytetrack

import (
	"errors"
	"fmt"
	"log"
	"math"

	"gonum.org/v1/gonum/mat"
)

// DetectBox represents a 1x4 measurement matrix using a slice of float32,
// in Cxcywh (center x, center y, width, height) order
type DetectBox []float32

// StateMean represents a 1x8 matrix using a slice of float32, holding
// [cx, cy, w, h, vcx, vcy, vw, vh]
type StateMean []float32

// StateCov represents an 8x8 matrix
type StateCov struct {
	*mat.Dense
}

// StateHMean represents a 1x4 matrix using a slice of float32
type StateHMean []float32

// StateHCov represents a 4x4 matrix
type StateHCov struct {
	*mat.SymDense
}

// KalmanFilter represents a constant velocity Kalman filter with per step
// velocity decay.  Noise scales with the tracked box height, so large and
// small boxes get proportionate uncertainty.
type KalmanFilter struct {
	stdWeightPosition float32
	stdWeightVelocity float32
	motionMat         *mat.Dense
	updateMat         *mat.Dense
}

// NewKalmanFilter initializes and returns a new KalmanFilter.  velocityDecay
// damps the velocity components each Predict and must be below 1 for lost
// tracks to coast to a halt instead of drifting forever.
func NewKalmanFilter(stdWeightPosition, stdWeightVelocity,
	velocityDecay float32) *KalmanFilter {

	ndim := 4

	// motion model: velocity is damped first, then integrated into position
	motionMat := mat.NewDense(8, 8, nil)

	for i := 0; i < ndim; i++ {
		motionMat.Set(i, i, 1.0)
		motionMat.Set(i, ndim+i, float64(velocityDecay))
		motionMat.Set(ndim+i, ndim+i, float64(velocityDecay))
	}

	// create updateMat as a 4x8 matrix with first 4 diagonal elements set to 1
	updateMat := mat.NewDense(4, 8, nil)

	for i := 0; i < 4; i++ {
		updateMat.Set(i, i, 1.0)
	}

	return &KalmanFilter{
		stdWeightPosition: stdWeightPosition,
		stdWeightVelocity: stdWeightVelocity,
		motionMat:         motionMat,
		updateMat:         updateMat,
	}
}

// Initiate initializes the state mean and covariance from a first
// measurement
func (kf *KalmanFilter) Initiate(mean StateMean, covariance *StateCov,
	measurement DetectBox) {

	// copy the measurement into the positional half of the mean
	copy(mean[:4], measurement[:4])

	// zero the velocity components
	for i := 4; i < 8; i++ {
		mean[i] = 0.0
	}

	// standard deviations scale with box height, wide for a fresh track
	std := make(StateMean, 8)

	for i := 0; i < 4; i++ {
		std[i] = 2 * kf.stdWeightPosition * measurement[3]
		std[4+i] = 10 * kf.stdWeightVelocity * measurement[3]
	}

	// set the diagonal elements of the covariance matrix to the variances
	for i := 0; i < 8; i++ {
		covariance.Set(i, i, float64(std[i]*std[i]))
	}
}

// Predict advances the state mean and covariance one frame
func (kf *KalmanFilter) Predict(mean StateMean, covariance *StateCov) {

	// process noise standard deviations for this step
	std := make(StateMean, 8)

	for i := 0; i < 4; i++ {
		std[i] = kf.stdWeightPosition * mean[3]
		std[4+i] = kf.stdWeightVelocity * mean[3]
	}

	// create the motion covariance matrix with variances on the diagonal
	motionCov := mat.NewDense(8, 8, nil)

	for i := 0; i < 8; i++ {
		motionCov.Set(i, i, float64(std[i]*std[i]))
	}

	// convert the mean state vector to a matrix for multiplication
	data := make([]float64, 8)

	for i, v := range mean {
		data[i] = float64(v)
	}

	meanMat := mat.NewDense(8, 1, data)

	// advance the state mean using the motion model
	meanMat.Mul(kf.motionMat, meanMat)

	for i := 0; i < 8; i++ {
		mean[i] = float32(meanMat.At(i, 0))
	}

	// advance the state covariance using the motion model
	cov := covariance.Dense
	cov.Mul(kf.motionMat, cov)
	cov.Mul(cov, kf.motionMat.T())
	cov.Add(cov, motionCov)
}

// Update corrects the state mean and covariance with a measurement.  A
// measurement with non-positive width or height is skipped, keeping the
// predicted state, and reported through the standard logger rather than
// as an error.
func (kf *KalmanFilter) Update(mean StateMean, covariance *StateCov,
	measurement DetectBox) error {

	if measurement[2] <= 0 || measurement[3] <= 0 {
		log.Printf("kalman update skipped: non-positive measurement size %.2fx%.2f",
			measurement[2], measurement[3])
		return nil
	}

	// project the state mean and covariance to measurement space
	projectedMean, projectedCov := kf.project(mean, covariance)

	// perform Cholesky factorization of the projected covariance matrix
	chol := mat.Cholesky{}

	if ok := chol.Factorize(projectedCov); !ok {
		return errors.New("failed to factorize projected covariance")
	}

	// compute the matrix B for Kalman gain calculation
	B := mat.NewDense(8, 4, nil)
	B.Mul(covariance.Dense, kf.updateMat.T())

	// compute the Kalman gain using the Cholesky factorization
	var kalmanGain mat.Dense
	err := chol.SolveTo(&kalmanGain, B.T())

	if err != nil {
		return fmt.Errorf("failed to compute kalman gain: %w", err)
	}

	// compute the innovation (measurement residual)
	innovation := make([]float64, 4)

	for i := 0; i < 4; i++ {
		innovation[i] = float64(measurement[i] - projectedMean[i])
	}

	// update the state mean with the innovation
	innovationVec := mat.NewVecDense(4, innovation)
	tmp := mat.NewVecDense(8, nil)
	tmp.MulVec(kalmanGain.T(), innovationVec)

	for i := 0; i < 8; i++ {
		mean[i] += float32(tmp.AtVec(i))
	}

	// update the state covariance
	temp := mat.NewDense(8, 4, nil)
	temp.Mul(kalmanGain.T(), projectedCov)

	temp2 := mat.NewDense(8, 8, nil)
	temp2.Mul(temp, &kalmanGain)

	newCov := mat.NewDense(8, 8, nil)
	newCov.Sub(covariance.Dense, temp2)

	covariance.Dense = newCov

	return nil
}

// project maps the state mean and covariance to measurement space
func (kf *KalmanFilter) project(mean StateMean,
	covariance *StateCov) (StateHMean, *StateHCov) {

	// measurement noise standard deviations
	std := make(DetectBox, 4)

	for i := 0; i < 4; i++ {
		std[i] = kf.stdWeightPosition * mean[3]
	}

	// create the innovation covariance matrix (measurement noise covariance)
	innovationCov := mat.NewSymDense(4, nil)

	for i := 0; i < 4; i++ {
		innovationCov.SetSym(i, i, float64(std[i]*std[i]))
	}

	// project the state mean to measurement space
	data := make([]float64, 8)

	for i, v := range mean {
		data[i] = float64(v)
	}

	projectedMeanVec := mat.NewVecDense(4, nil)
	projectedMeanVec.MulVec(kf.updateMat, mat.NewVecDense(8, data))

	// project the state covariance to measurement space
	projectedCov := mat.NewSymDense(4, nil)
	temp := mat.NewDense(4, 8, nil)
	temp.Mul(kf.updateMat, covariance.Dense)
	temp2 := mat.NewDense(4, 4, nil)
	temp2.Mul(temp, kf.updateMat.T())

	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			projectedCov.SetSym(i, j, temp2.At(i, j))
		}
	}

	// add the measurement noise to the projected covariance
	projectedCov.AddSym(projectedCov, innovationCov)

	// convert the projected mean to StateHMean type
	projectedMean := make(StateHMean, 4)

	for i := 0; i < 4; i++ {
		projectedMean[i] = float32(projectedMeanVec.AtVec(i))
	}

	return projectedMean, &StateHCov{projectedCov}
}

// Stationary reports whether a state mean describes a near motionless
// track, comparing the center velocity magnitude in pixels per frame
// against threshold
func Stationary(mean StateMean, threshold float32) bool {
	speed := math.Hypot(float64(mean[4]), float64(mean[5]))
	return speed < float64(threshold)
}
