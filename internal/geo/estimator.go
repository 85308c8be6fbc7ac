package geo

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/time/rate"

	"github.com/udisondev/wayfinder/internal/model"
)

// PathQuerier is the nav-mesh provider used by the estimator.
// *Grid implements it.
type PathQuerier interface {
	FindPath(src, dst mgl64.Vec3) (Path, error)
}

// Estimate is the result of a path-distance query.
type Estimate struct {
	Status     PathStatus
	PathLength float64      // polyline length, or the straight distance when degraded
	Bearing    float64      // world heading toward the first significant waypoint
	Straight   float64      // straight-line distance source→destination
	Degraded   bool         // no complete path; PathLength and Bearing are straight-line
	Waypoints  []mgl64.Vec3 // empty when degraded
}

// Estimator turns nav-mesh paths into walking distance and initial heading.
type Estimator struct {
	mesh    PathQuerier
	epsilon float64
	failLog rate.Sometimes
}

// NewEstimator creates an estimator. mesh may be nil, in which case every
// estimate is degraded. epsilon is the distance under which waypoints are
// considered to coincide with the source when choosing the bearing.
func NewEstimator(mesh PathQuerier, epsilon float64) *Estimator {
	return &Estimator{
		mesh:    mesh,
		epsilon: epsilon,
		failLog: rate.Sometimes{First: 1, Interval: 30 * time.Second},
	}
}

// Estimate computes the walking distance and bearing from source to destination.
// Partial or invalid paths and provider failures fall back to straight-line values.
func (e *Estimator) Estimate(source, destination mgl64.Vec3) Estimate {
	straight := destination.Sub(source).Len()
	degraded := Estimate{
		Status:     PathInvalid,
		PathLength: straight,
		Bearing:    model.Heading(destination.Sub(source)),
		Straight:   straight,
		Degraded:   true,
	}
	if e.mesh == nil {
		return degraded
	}

	path, err := e.query(source, destination)
	if err != nil {
		e.failLog.Do(func() {
			slog.Debug("path query failed, using straight line", "err", err)
		})
		return degraded
	}
	if path.Status != PathComplete {
		degraded.Status = path.Status
		return degraded
	}

	waypoints := path.Waypoints
	if len(waypoints) == 0 {
		waypoints = []mgl64.Vec3{destination}
	}

	return Estimate{
		Status:     PathComplete,
		PathLength: PolylineLength(source, waypoints),
		Bearing:    e.initialHeading(source, destination, waypoints),
		Straight:   straight,
		Waypoints:  waypoints,
	}
}

// initialHeading returns the heading toward the first waypoint farther than epsilon.
func (e *Estimator) initialHeading(source, destination mgl64.Vec3, waypoints []mgl64.Vec3) float64 {
	for _, w := range waypoints {
		d := w.Sub(source)
		if model.Flatten(d).Len() > e.epsilon {
			return model.Heading(d)
		}
	}
	return model.Heading(destination.Sub(source))
}

func (e *Estimator) query(source, destination mgl64.Vec3) (path Path, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("nav mesh panic: %v", r)
		}
	}()
	return e.mesh.FindPath(source, destination)
}

// PolylineLength sums segment lengths of source→waypoints.
func PolylineLength(source mgl64.Vec3, waypoints []mgl64.Vec3) float64 {
	total := 0.0
	prev := source
	for _, w := range waypoints {
		total += w.Sub(prev).Len()
		prev = w
	}
	return total
}
