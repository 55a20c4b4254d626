package release

import (
	"fmt"
	"io"

	"github.com/roach88/cellsim/internal/engine"
)

// Dump implements engine.Event.
func (r *Event) Dump(w io.Writer, indent string) {
	r.DumpBase(w, indent)
	in := indent + "  "
	fmt.Fprintf(w, "%sspecies: %s\n", in, r.speciesName)
	fmt.Fprintf(w, "%sorientation: %d\n", in, r.Orientation)
	fmt.Fprintf(w, "%sshape: %s\n", in, r.Shape)
	fmt.Fprintf(w, "%snumber_method: %s\n", in, r.Method)
	fmt.Fprintf(w, "%srelease_number: %g\n", in, r.ReleaseNumber)
	fmt.Fprintf(w, "%sconcentration: %g\n", in, r.Concentration)
	fmt.Fprintf(w, "%srelease_probability: %g\n", in, r.ReleaseProbability)
	switch r.Shape {
	case ShapeSpherical, ShapeSphericalShell:
		fmt.Fprintf(w, "%slocation: (%g, %g, %g)\n", in, r.Location.X, r.Location.Y, r.Location.Z)
		fmt.Fprintf(w, "%sdiameter: (%g, %g, %g)\n", in, r.Diameter.X, r.Diameter.Y, r.Diameter.Z)
	case ShapeRegion, ShapeInitialSurfaceRegion:
		fmt.Fprintf(w, "%sregion: %s\n", in, r.Region)
		if len(r.walls) > 0 {
			fmt.Fprintf(w, "%swalls: %d (total area %g)\n", in, len(r.walls), r.TotalArea())
		}
	case ShapeList:
		fmt.Fprintf(w, "%slist: %d molecules\n", in, len(r.List))
	}
	p := r.Pattern
	fmt.Fprintf(w, "%spattern: delay=%g trains=%d train_interval=%g train_duration=%g release_interval=%g\n",
		in, p.Delay, p.NumberOfTrains, p.TrainInterval, p.TrainDuration, p.ReleaseInterval)
	fmt.Fprintf(w, "%sactual_release_time: %g\n", in, r.state.actualReleaseTime)
	fmt.Fprintf(w, "%scurrent_train: %d\n", in, r.state.currentTrain)
	fmt.Fprintf(w, "%scurrent_release_in_train: %d\n", in, r.state.currentReleaseInTrain)
}

// ToCheckpoint implements engine.Event. Pattern times are scaled to seconds.
func (r *Event) ToCheckpoint(timeStep float64) engine.Checkpoint {
	cp := r.BaseCheckpoint(timeStep)
	p := r.Pattern
	cp.State["species"] = r.speciesName
	cp.State["orientation"] = r.Orientation
	cp.State["shape"] = r.Shape.String()
	cp.State["number_method"] = r.Method.String()
	cp.State["release_number"] = r.ReleaseNumber
	cp.State["concentration"] = r.Concentration
	cp.State["release_probability"] = r.ReleaseProbability
	cp.State["pattern"] = map[string]any{
		"delay":            p.Delay * timeStep,
		"number_of_trains": p.NumberOfTrains,
		"train_interval":   p.TrainInterval * timeStep,
		"train_duration":   p.TrainDuration * timeStep,
		"release_interval": p.ReleaseInterval * timeStep,
	}
	cp.State["actual_release_time"] = r.state.actualReleaseTime * timeStep
	cp.State["current_train"] = r.state.currentTrain
	cp.State["current_release_in_train"] = r.state.currentReleaseInTrain
	if !r.Region.IsEmpty() {
		cp.State["region"] = r.Region.String()
	}
	return cp
}
