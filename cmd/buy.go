package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/simonvc/fundcard/internal/bridge"
	"github.com/simonvc/fundcard/internal/config"
	"github.com/simonvc/fundcard/internal/fund"
	"github.com/simonvc/fundcard/internal/history"
	"github.com/simonvc/fundcard/internal/logging"
	"github.com/simonvc/fundcard/internal/store"
	"github.com/simonvc/fundcard/internal/tui"
)

var (
	flagButtonText string
	flagHeaderText string
	flagPopupSize  string
	flagNoHistory  bool
)

var buyCmd = &cobra.Command{
	Use:   "buy",
	Short: "Open the interactive fund card",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, closer, err := logging.OpenFile(cfg.LogFile, cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer closer.Close()

		session, err := newSession("")
		if err != nil {
			return err
		}

		sizer, err := popupSizer()
		if err != nil {
			return err
		}

		var onStatus []func(fund.LifecycleStatus)
		if !flagNoHistory {
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer st.Close()
			onStatus = append(onStatus, history.NewRecorder(st, logger).Handle)
		}
		onStatus = append(onStatus, func(s fund.LifecycleStatus) {
			logger.Info("checkout status", "status", s.Name, "popup", s.PopupID, "state", s.Snapshot.SubmitState, "err", s.Err)
		})

		ln, err := net.Listen("tcp", cfg.BridgeAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.BridgeAddr, err)
		}
		br := bridge.New(bridge.WithLogger(logger))

		app := tui.NewApp(tui.AppConfig{
			Session:      session,
			Opener:       br,
			Loader:       fund.Loader{Fetcher: newOnrampClient(logger), Timeout: cfg.FetchTimeout},
			Events:       br.Events(),
			CheckoutURL:  cfg.CheckoutURL,
			Sizer:        sizer,
			OnStatus:     onStatus,
			Debounce:     cfg.QuoteDebounce,
			PollInterval: cfg.PopupPoll,
			HeaderText:   flagHeaderText,
			ButtonText:   flagButtonText,
			Logger:       logger,
		})
		if flagPaymentMethod != "" {
			logger.Warn("--payment-method is ignored by the interactive card, press p to choose")
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return br.Serve(ctx, ln)
		})
		g.Go(func() error {
			defer cancel()
			p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
			_, err := p.Run()
			app.Close()
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		})
		return g.Wait()
	},
}

func popupSizer() (fund.SizeFunc, error) {
	size := cfg.PopupSize
	if flagPopupSize != "" {
		size = flagPopupSize
	}
	preset := fund.SizePreset(size)
	switch preset {
	case fund.SizeSmall, fund.SizeMedium, fund.SizeLarge:
	default:
		return nil, fmt.Errorf("invalid popup size %q, expected sm, md or lg", size)
	}
	w, h, err := config.ParseViewport(cfg.Viewport)
	if err != nil {
		return nil, err
	}
	return fund.FixedSizer(preset, fund.Viewport{Width: w, Height: h}), nil
}

func init() {
	addSessionFlags(buyCmd)
	buyCmd.Flags().StringSliceVar(&flagPresets, "presets", nil, "Three preset fiat amounts, e.g. 10,20,50")
	buyCmd.Flags().StringVar(&flagButtonText, "button-text", "", "Call-to-action text (default \"Buy\")")
	buyCmd.Flags().StringVar(&flagHeaderText, "header-text", "", "Card header (default \"Buy <ASSET>\")")
	buyCmd.Flags().StringVar(&flagPopupSize, "popup-size", "", "Checkout window size: sm, md or lg (env FUNDCARD_POPUP_SIZE)")
	buyCmd.Flags().BoolVar(&flagNoHistory, "no-history", false, "Do not record checkout attempts")
	rootCmd.AddCommand(buyCmd)
}
