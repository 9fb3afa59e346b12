package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/rychipman/bridge-practice/config"
	"github.com/rychipman/bridge-practice/internal/application/command"
	"github.com/rychipman/bridge-practice/internal/application/eventhandler"
	"github.com/rychipman/bridge-practice/internal/application/query"
	"github.com/rychipman/bridge-practice/internal/bootstrap"
	"github.com/rychipman/bridge-practice/internal/domain/bridge"
	"github.com/rychipman/bridge-practice/internal/domain/learner"
	"github.com/rychipman/bridge-practice/internal/domain/shared"
	"github.com/rychipman/bridge-practice/internal/infrastructure/messaging"
	"github.com/rychipman/bridge-practice/internal/infrastructure/persistence/memory"
	"github.com/rychipman/bridge-practice/internal/infrastructure/service"
	"github.com/rychipman/bridge-practice/pkg/timeutil"
)

const (
	optComment = "Comment…"
	optQuit    = "Quit"
)

type app struct {
	learners learner.Repository
	now      func() time.Time

	register *command.RegisterLearnerHandler
	submit   *command.SubmitBidHandler
	comment  *command.AddCommentHandler

	next     *query.NextExerciseHandler
	view     *query.GetExerciseHandler
	bids     *query.ListExerciseBidsHandler
	review   *query.ReviewExercisesHandler
	list     *query.ListLearnersHandler
	conflict *query.ConflictingExerciseHandler
}

func newApp(storage *bootstrap.Storage, cfg *config.Config, log *slog.Logger) (*app, error) {
	ids := service.NewIDGenerator()

	// Handlers run inline; the process may exit right after a command.
	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{Logger: log})
	if err := eventhandler.Register(bus, eventhandler.NewOnLearnerActivityHandler(storage.Learners, log, 0), nil); err != nil {
		return nil, err
	}

	return &app{
		learners: storage.Learners,
		now:      time.Now,

		register: command.NewRegisterLearnerHandler(storage.Learners, ids, nil, cfg.Auth.BcryptCost).WithEvents(bus),
		submit:   command.NewSubmitBidHandler(storage.Practice, storage.Learners, ids, nil, log).WithEvents(bus),
		comment:  command.NewAddCommentHandler(storage.Practice, storage.Learners, ids, nil).WithEvents(bus),

		next: query.NewNextExerciseHandler(storage.Practice, ids, nil, log, query.NextExerciseConfig{
			Lookback: cfg.Practice.Lookback,
			Locker:   memory.NewLocker(),
		}),
		view:     query.NewGetExerciseHandler(storage.Practice, nil, log),
		bids:     query.NewListExerciseBidsHandler(storage.Practice),
		review:   query.NewReviewExercisesHandler(storage.Practice),
		list:     query.NewListLearnersHandler(storage.Learners),
		conflict: query.NewConflictingExerciseHandler(storage.Practice),
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// deal
// ─────────────────────────────────────────────────────────────────────────────

func cmdDeal(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("deal", flag.ContinueOnError)
	fs.SetOutput(stderr)
	text := fs.Bool("text", false, "print hands in S|H|D|C form")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	d := bridge.RandomDeal(bridge.NewRand())
	if *text {
		for _, seat := range bridge.Seats {
			pterm.Printfln("%s %s", seat.Initial(), d.Hand(seat))
		}
		return nil
	}
	printDeal(d)
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// register / learners
// ─────────────────────────────────────────────────────────────────────────────

func (a *app) cmdRegister(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(stderr)
	email := fs.String("email", "", "learner email")
	password := fs.String("password", "", "password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *email == "" {
		fs.Usage()
		return errUsage
	}

	if *password == "" {
		pw, err := pterm.DefaultInteractiveTextInput.WithMask("*").Show("Password")
		if err != nil {
			return err
		}
		*password = pw
	}

	l, err := a.register.Handle(ctx, command.RegisterLearnerCommand{Email: *email, Password: *password})
	if err != nil {
		return err
	}
	pterm.Success.Printfln("registered %s (%s)", l.Email, l.ID)
	return nil
}

func (a *app) cmdLearners(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("learners", flag.ContinueOnError)
	fs.SetOutput(stderr)
	limit := fs.Int("limit", 50, "page size")
	offset := fs.Int("offset", 0, "page offset")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	list, err := a.list.Handle(ctx, learner.DefaultListOptions().WithLimit(*limit).WithOffset(*offset))
	if err != nil {
		return err
	}
	if len(list) == 0 {
		pterm.Info.Println("no learners yet")
		return nil
	}

	now := a.now()
	data := pterm.TableData{{"Email", "ID", "Registered", "Last active"}}
	for _, l := range list {
		data = append(data, []string{
			l.Email,
			l.ID,
			timeutil.FormatDateTime(l.CreatedAt),
			timeutil.FormatRelative(l.LastActive, now),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

// ─────────────────────────────────────────────────────────────────────────────
// practice
// ─────────────────────────────────────────────────────────────────────────────

func (a *app) cmdPractice(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("practice", flag.ContinueOnError)
	fs.SetOutput(stderr)
	email := fs.String("email", "", "learner email")
	rounds := fs.Int("n", 0, "stop after n calls (0 means until Quit)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *email == "" {
		fs.Usage()
		return errUsage
	}

	l, err := a.lookup(ctx, *email)
	if err != nil {
		return err
	}
	pterm.Info.Printfln("practising as %s", l.Email)

	for done := 0; *rounds == 0 || done < *rounds; {
		if ctx.Err() != nil {
			return nil
		}

		next, err := a.next.Handle(ctx, query.NextExerciseQuery{LearnerID: l.ID})
		if err != nil {
			return err
		}
		view, err := a.view.Handle(ctx, query.GetExerciseQuery{ExerciseID: next.Exercise.ID})
		if err != nil {
			return err
		}
		if view.Deal == nil {
			return fmt.Errorf("exercise %s has no deal", next.Exercise.ID)
		}

		pterm.Println()
		printExercise(exerciseView{
			ID:         view.Exercise.ID,
			Deal:       view.Deal.Deal,
			Vulnerable: view.Deal.Deal.Vulnerable,
			NextSeat:   view.NextSeat,
			Table:      view.Table,
		})

		call, quit, err := a.chooseCall(ctx, l.ID, view)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}

		res, err := a.submit.Handle(ctx, command.SubmitBidCommand{
			ExerciseID: view.Exercise.ID,
			LearnerID:  l.ID,
			Bid:        call,
		})
		if shared.IsInvalidContinuation(err) || shared.IsFormat(err) {
			pterm.Warning.Println(err)
			continue
		}
		if err != nil {
			return err
		}
		done++

		pterm.Success.Printfln("recorded %s", res.ExerciseBid.Bid)
		bids, err := a.bids.Handle(ctx, view.Exercise.ID)
		if err != nil {
			return err
		}
		if len(bids) > 1 {
			pterm.Info.Println("calls recorded on this exercise:")
			printTally(tallyCalls(bids))
		}
	}
	return nil
}

// chooseCall prompts until the learner picks a call or quits. Comments are
// saved in between.
func (a *app) chooseCall(ctx context.Context, learnerID string, view *query.ExerciseView) (string, bool, error) {
	options := append(callLabels(view.LegalCalls), optComment, optQuit)
	for {
		choice, err := pterm.DefaultInteractiveSelect.
			WithDefaultText(fmt.Sprintf("%s to call", view.NextSeat)).
			WithOptions(options).
			WithMaxHeight(12).
			Show()
		if err != nil {
			return "", false, err
		}

		switch choice {
		case optQuit:
			return "", true, nil
		case optComment:
			text, err := pterm.DefaultInteractiveTextInput.Show("Comment")
			if err != nil {
				return "", false, err
			}
			if strings.TrimSpace(text) == "" {
				continue
			}
			if _, err := a.comment.Handle(ctx, command.AddCommentCommand{
				ExerciseID: view.Exercise.ID,
				LearnerID:  learnerID,
				Text:       text,
			}); err != nil {
				return "", false, err
			}
			pterm.Success.Println("comment saved")
		default:
			return choice, false, nil
		}
	}
}

func (a *app) lookup(ctx context.Context, email string) (*learner.Learner, error) {
	addr, err := learner.ParseEmail(email)
	if err != nil {
		return nil, err
	}
	l, err := a.learners.GetByEmail(ctx, addr)
	if shared.IsNotFound(err) {
		return nil, fmt.Errorf("no learner %s; run bridgectl register -email %s first", email, email)
	}
	return l, err
}

// ─────────────────────────────────────────────────────────────────────────────
// review / show
// ─────────────────────────────────────────────────────────────────────────────

func (a *app) cmdReview(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("review", flag.ContinueOnError)
	fs.SetOutput(stderr)
	email := fs.String("email", "", "also show the oldest conflicting exercise this learner has called")
	verbose := fs.Bool("ids", false, "list exercise ids in every bucket")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	summary, err := a.review.Handle(ctx)
	if err != nil {
		return err
	}

	buckets := []struct {
		name string
		ids  []string
	}{
		{"Unbid", summary.Unbid},
		{"Single call", summary.Single},
		{"Rebid", summary.Rebid},
		{"Inconsistent", summary.Inconsistent},
	}

	data := pterm.TableData{{"Bucket", "Exercises"}}
	for _, b := range buckets {
		data = append(data, []string{b.name, fmt.Sprint(len(b.ids))})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}

	if *verbose {
		for _, b := range buckets {
			if len(b.ids) == 0 {
				continue
			}
			pterm.DefaultSection.Println(b.name)
			for _, id := range b.ids {
				pterm.Println(id)
			}
		}
	}

	if *email != "" {
		l, err := a.lookup(ctx, *email)
		if err != nil {
			return err
		}
		ex, err := a.conflict.Handle(ctx, l.ID)
		if shared.IsNotFound(err) {
			pterm.Info.Println("no conflicting exercises")
			return nil
		}
		if err != nil {
			return err
		}
		pterm.Info.Printfln("oldest conflict: %s (%s)", ex.ID, ex.Bids)
	}
	return nil
}

func (a *app) cmdShow(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	fs.SetOutput(stderr)
	id := fs.String("exercise", "", "exercise id")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *id == "" {
		fs.Usage()
		return errUsage
	}

	view, err := a.view.Handle(ctx, query.GetExerciseQuery{ExerciseID: *id})
	if err != nil {
		return err
	}
	if view.Deal != nil {
		printDeal(view.Deal.Deal)
	}
	pterm.Println(view.Table)
	if view.Finished {
		pterm.Info.Println("auction finished")
	} else {
		pterm.Info.Printfln("%s to call", view.NextSeat)
	}

	bids, err := a.bids.Handle(ctx, *id)
	if err != nil {
		return err
	}
	printTally(tallyCalls(bids))

	now := a.now()
	for _, c := range view.Comments {
		pterm.Printfln("%s  %s", pterm.FgDarkGray.Sprint(timeutil.FormatRelative(c.CreatedAt, now)), c.Text)
	}
	return nil
}
