package session

import (
	"time"

	"github.com/rs/zerolog"
)

// API is everything the session needs from the classification service.
// *apiclient.Client satisfies it.
type API interface {
	ImageSource
	Predictor
	ArchiveUploader
	RetrainAPI
}

// Options configures New. Zero values select defaults.
type Options struct {
	View          View
	Events        EventPublisher
	Logger        zerolog.Logger
	PollInterval  time.Duration
	PreviewMaxDim int
}

// Session owns the state of one user's interaction. The current image
// selection is written only by Input and read only by Predictions.
type Session struct {
	Input       *InputSelector
	Predictions *PredictionRequester
	Uploads     *RetrainDataUploader
	Retrain     *RetrainJobMonitor
}

// New wires the session components around api.
func New(api API, opts Options) *Session {
	if opts.View == nil {
		opts.View = NewMemoryView()
	}
	if opts.Events == nil {
		opts.Events = noopPublisher{}
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	log := opts.Logger.With().Str("component", "session").Logger()

	input := &InputSelector{
		images:        api,
		view:          opts.View,
		events:        opts.Events,
		log:           log,
		previewMaxDim: opts.PreviewMaxDim,
		sel:           ImageSelection{Kind: SelectionNone},
	}
	return &Session{
		Input: input,
		Predictions: &PredictionRequester{
			api:       api,
			selection: input.Selection,
			view:      opts.View,
			events:    opts.Events,
			log:       log,
		},
		Uploads: &RetrainDataUploader{
			api:    api,
			view:   opts.View,
			events: opts.Events,
			log:    log,
		},
		Retrain: &RetrainJobMonitor{
			api:      api,
			view:     opts.View,
			events:   opts.Events,
			log:      opts.Logger.With().Str("component", "retrain").Logger(),
			interval: opts.PollInterval,
			state:    MonitorIdle,
		},
	}
}
