package session

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"imgclass/pkg/types"
)

// ErrNoSelection is returned when a prediction is requested with nothing selected.
var ErrNoSelection = errors.New("no image selected")

// OutcomeKind tags a PredictionOutcome.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeFailure
)

// PredictionOutcome is the result of one prediction request. Reason is empty
// for failures that carry no server explanation (transport, malformed body).
type PredictionOutcome struct {
	Kind   OutcomeKind
	Label  string
	Reason string
}

// Text is the rendered form of the outcome.
func (o PredictionOutcome) Text() string {
	switch {
	case o.Kind == OutcomeSuccess:
		return MsgPredictionPrefix + o.Label
	case o.Reason != "":
		return "Prediction failed: " + o.Reason
	default:
		return MsgPredictionFailed
	}
}

// Predictor issues the two prediction request variants.
type Predictor interface {
	PredictUpload(ctx context.Context, filename string, image []byte) (types.PredictionResponse, error)
	PredictLibrary(ctx context.Context, id string) (types.PredictionResponse, error)
}

// PredictionRequester turns the current selection into one prediction request
// and renders exactly one outcome per call. Failed attempts are not retried.
type PredictionRequester struct {
	api       Predictor
	selection func() ImageSelection
	view      View
	events    EventPublisher
	log       zerolog.Logger
}

// RequestPrediction predicts the currently selected image. With nothing
// selected it alerts the user, makes no request and returns ErrNoSelection.
func (p *PredictionRequester) RequestPrediction(ctx context.Context) (PredictionOutcome, error) {
	sel := p.selection()
	var (
		res types.PredictionResponse
		err error
	)
	switch sel.Kind {
	case SelectionUpload:
		res, err = p.api.PredictUpload(ctx, sel.Filename, sel.Blob)
	case SelectionLibrary:
		res, err = p.api.PredictLibrary(ctx, sel.ID)
	default:
		p.view.Alert(MsgSelectImage)
		return PredictionOutcome{}, ErrNoSelection
	}

	out := outcomeOf(res, err)
	if err != nil {
		p.log.Error().Str("kind", sel.Kind.String()).Err(err).Msg("prediction request failed")
	}
	p.view.SetPredictionText(out.Text())
	p.events.Publish(Event{Name: EventPredictionRendered, Fields: map[string]any{"kind": sel.Kind.String(), "text": out.Text()}})
	return out, nil
}

func outcomeOf(res types.PredictionResponse, err error) PredictionOutcome {
	switch {
	case err != nil:
		return PredictionOutcome{Kind: OutcomeFailure}
	case res.Prediction != "":
		return PredictionOutcome{Kind: OutcomeSuccess, Label: res.Prediction}
	default:
		return PredictionOutcome{Kind: OutcomeFailure, Reason: res.Error}
	}
}
