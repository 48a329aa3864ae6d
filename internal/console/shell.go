package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"imgclass/internal/common/fsutil"
	"imgclass/internal/session"
)

const shellHelp = `commands:
  upload <path>        select an image file (no path clears the upload)
  library <id>         select a library image (no id clears the selection)
  predict              classify the current selection
  retrain-data <zip>   upload an archive of new training images
  retrain              start retraining and monitor it in the background
  status               show the selection and the retraining job
  help                 show this text
  quit                 leave the shell
`

// Shell feeds line-oriented commands into a session.
type Shell struct {
	sess   *session.Session
	in     io.Reader
	out    io.Writer
	log    zerolog.Logger
	Prompt string
}

func NewShell(sess *session.Session, in io.Reader, out io.Writer, log zerolog.Logger) *Shell {
	return &Shell{sess: sess, in: in, out: out, log: log, Prompt: "> "}
}

// Run reads commands until quit, EOF or ctx is done. Background retrain
// monitoring is bound to ctx.
func (sh *Shell) Run(ctx context.Context) error {
	sc := bufio.NewScanner(sh.in)
	fmt.Fprint(sh.out, sh.Prompt)
	for sc.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		quit, err := sh.Exec(ctx, sc.Text())
		if err != nil {
			sh.log.Debug().Err(err).Str("line", sc.Text()).Msg("command failed")
		}
		if quit {
			return nil
		}
		fmt.Fprint(sh.out, sh.Prompt)
	}
	return sc.Err()
}

// ErrUnknownCommand is returned by Exec for lines it cannot parse.
var ErrUnknownCommand = errors.New("unknown command")

// Exec runs one command line. Failures are already rendered to the view by
// the session; the returned error is for callers that need it.
func (sh *Shell) Exec(ctx context.Context, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	arg := strings.Join(args, " ")

	switch cmd {
	case "quit", "exit":
		return true, nil
	case "help", "?":
		fmt.Fprint(sh.out, shellHelp)
		return false, nil
	case "upload":
		if arg == "" {
			return false, sh.sess.Input.SelectUpload(ctx, nil)
		}
		name, data, err := fsutil.ReadUpload(arg)
		if err != nil {
			fmt.Fprintf(sh.out, "! cannot read %s: %v\n", arg, err)
			return false, err
		}
		return false, sh.sess.Input.SelectUpload(ctx, &session.Upload{Name: name, Data: data})
	case "library", "lib":
		return false, sh.sess.Input.SelectLibrary(ctx, arg)
	case "predict":
		_, err := sh.sess.Predictions.RequestPrediction(ctx)
		return false, err
	case "retrain-data":
		var up *session.Upload
		if arg != "" {
			name, data, err := fsutil.ReadUpload(arg)
			if err != nil {
				fmt.Fprintf(sh.out, "! cannot read %s: %v\n", arg, err)
				return false, err
			}
			up = &session.Upload{Name: name, Data: data}
		}
		_, err := sh.sess.Uploads.UploadRetrainArchive(ctx, up)
		return false, err
	case "retrain":
		return false, sh.sess.Retrain.Start(ctx)
	case "status":
		sh.printStatus()
		return false, nil
	default:
		fmt.Fprintf(sh.out, "unknown command %q, try help\n", cmd)
		return false, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
}

func (sh *Shell) printStatus() {
	sel := sh.sess.Input.Selection()
	switch sel.Kind {
	case session.SelectionUpload:
		fmt.Fprintf(sh.out, "selection: upload %s (%d bytes)\n", sel.Filename, len(sel.Blob))
	case session.SelectionLibrary:
		fmt.Fprintf(sh.out, "selection: library image %s\n", sel.ID)
	default:
		fmt.Fprintln(sh.out, "selection: none")
	}
	state := sh.sess.Retrain.State()
	job, ok := sh.sess.Retrain.Job()
	if !ok {
		fmt.Fprintf(sh.out, "retrain: %s\n", state)
		return
	}
	fmt.Fprintf(sh.out, "retrain: %s (job %s, %s %.0f%%)\n", state, job.ID, job.Status, job.Progress)
}
