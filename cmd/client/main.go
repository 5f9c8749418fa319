package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"embers/internal/ai"
	"embers/internal/ephemeral"
	"embers/internal/journal"
	"embers/internal/models"
	"embers/internal/roomid"
	"embers/internal/sentinel"
	"embers/internal/session"
	"embers/internal/transport"
	"embers/internal/ui"
	"embers/internal/utils"
)

func main() {
	var (
		broker      = flag.String("broker", os.Getenv("EMBERS_BROKER"), "mqtt broker url (tcp://host:1883)")
		brokerUser  = flag.String("broker-user", os.Getenv("EMBERS_BROKER_USER"), "mqtt username")
		brokerPass  = flag.String("broker-pass", os.Getenv("EMBERS_BROKER_PASS"), "mqtt password")
		bootstrap   = flag.String("bootstrap", os.Getenv("EMBERS_BOOTSTRAP"), "comma-separated libp2p bootstrap multiaddrs")
		journalPath = flag.String("journal", "embers.db", "journal database path")
		logPath     = flag.String("log", "embers.log", "log file path (empty disables logging)")
		aiEndpoint  = flag.String("ai", os.Getenv("EMBERS_AI_ENDPOINT"), "predictive text endpoint url")
	)
	flag.Parse()

	log := utils.NewLogger(*logPath)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var channel transport.Channel
	switch {
	case *broker != "":
		channel = transport.NewMQTT(transport.MQTTConfig{
			Broker:   *broker,
			Username: *brokerUser,
			Password: *brokerPass,
		}, log)
	default:
		var addrs []string
		if *bootstrap != "" {
			addrs = strings.Split(*bootstrap, ",")
		}
		ps, err := transport.NewPubSub(ctx, transport.PubSubConfig{Bootstrap: addrs}, log)
		if err != nil {
			fmt.Fprintln(os.Stderr, "transport init failed:", err)
			os.Exit(1)
		}
		defer ps.Close()
		channel = ps
	}

	store, err := journal.Open(*journalPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "journal open failed:", err)
		os.Exit(1)
	}
	defer store.Close()

	sess := session.New(channel, log)
	burns := ephemeral.NewRegistry(nil)
	detector := sentinel.NewDetector(0, log)
	predictor := ai.NewClient(*aiEndpoint, log)

	cfg := &ui.UIConfig{
		JoinHandler: func(passcode, nickname string) error {
			if err := store.Unlock(passcode); err != nil {
				if utils.IsSecurityError(err) {
					return err
				}
				log.Warn().Err(err).Msg("journal unlock failed, sharing disabled")
			}
			return sess.Join(ctx, roomid.Resolve(passcode), nickname)
		},
		LeaveHandler: func() {
			sess.Leave()
			burns.Reset()
		},
		SendHandler:  sess.SendMessage,
		ShareHandler: sess.ShareJournal,
		ListEntries: func() []models.JournalEntry {
			entries, err := store.List()
			if err != nil {
				log.Warn().Err(err).Msg("journal list failed")
				return nil
			}
			return entries
		},
		SaveEntry: func(content, mood string, tags []string, pinned bool) error {
			entry := journal.NewEntry(uuid.NewString(), content, time.Now())
			entry.Mood = mood
			entry.Tags = tags
			entry.Pinned = pinned
			return store.Save(entry)
		},
		Predict: func(content string) string {
			pctx, pcancel := context.WithTimeout(ctx, 10*time.Second)
			defer pcancel()
			return predictor.Predict(pctx, content)
		},
		Messages:    sess.Messages,
		OnlineCount: sess.OnlineCount,
		SelfID:      sess.SelfID,
		RoomID:      sess.RoomID,
		Burns:       burns,
		Detector:    detector,
	}

	app := ui.NewUI(cfg)

	detector.SetJoinedFunc(sess.IsJoined)
	detector.SetRiskFunc(func(a sentinel.Action) {
		sess.SendScreenshotAlert(session.Action(a))
	})
	sess.SetUpdateFunc(app.Redraw)

	// One poll loop for the whole process; each tick burns expired
	// messages and refreshes the countdowns on screen.
	go burns.Run(ctx, time.Second, func() {
		if sess.IsJoined() {
			app.Redraw()
		}
	})

	err = app.App.Run()
	// Purge broadcast on the way out, same as Esc.
	sess.Leave()
	if err != nil {
		fmt.Fprintln(os.Stderr, "ui error:", err)
		os.Exit(1)
	}
}
