// Command voicewind wires the dictation core (pkg/controller down through
// pkg/audio, pkg/sttbatch, pkg/sttrealtime, pkg/llm and pkg/insert) into a
// runnable process: load persisted config and secrets, open the default
// microphone, bind a hotkey-free demo loop that toggles on SIGUSR1,
// cancels on SIGUSR2 and quits on SIGINT/SIGTERM, and print every
// status/mic-level event to the
// terminal. A real desktop shell replaces the terminal loop and the
// in-memory platform/insert stand-ins with its own tray, webview overlay,
// and OS clipboard/keystroke/window-enumeration bindings; everything below
// the Deps boundary is unchanged.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/Clouder0/voicewin/pkg/audio"
	"github.com/Clouder0/voicewin/pkg/config"
	"github.com/Clouder0/voicewin/pkg/controller"
	"github.com/Clouder0/voicewin/pkg/engine"
	"github.com/Clouder0/voicewin/pkg/insert"
	"github.com/Clouder0/voicewin/pkg/llm"
	"github.com/Clouder0/voicewin/pkg/platform"
	"github.com/Clouder0/voicewin/pkg/prompt"
	"github.com/Clouder0/voicewin/pkg/session"
	"github.com/Clouder0/voicewin/pkg/sttbatch"
	"github.com/Clouder0/voicewin/pkg/sttrealtime"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, using system environment variables")
	}

	logger := session.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	configDir := os.Getenv("VOICEWIND_CONFIG_DIR")
	if configDir == "" {
		configDir = "."
	}
	cfgStore := config.NewStore(filepath.Join(configDir, "config.json"))
	historyStore := config.NewHistoryStore(filepath.Join(configDir, "history.json"))

	appCfg, err := cfgStore.Load()
	if err != nil {
		log.Fatalf("voicewind: load config: %v", err)
	}
	if len(appCfg.Prompts) == 0 {
		appCfg.Prompts = []config.PromptTemplate{{
			ID:           uuid.NewString(),
			Title:        "Default enhancer",
			Mode:         int(prompt.ModeEnhancer),
			PromptText:   "Clean up filler words and make the dictated text read naturally, without changing its meaning.",
			TriggerWords: []string{"rewrite", "clean up"},
		}}
		appCfg.Defaults.PromptID = &appCfg.Prompts[0].ID
		appCfg.Defaults.InsertMode = config.InsertModePaste
		appCfg.Defaults.SttProvider = "local"
		appCfg.Defaults.SttModel = os.Getenv("VOICEWIND_STT_MODEL")
		appCfg.Defaults.Language = "auto"
		appCfg.Defaults.LlmBaseURL = envOr("VOICEWIND_LLM_BASE_URL", "https://api.openai.com/v1")
		appCfg.Defaults.LlmModel = envOr("VOICEWIND_LLM_MODEL", "gpt-4o-mini")
		appCfg.Defaults.Context = config.DefaultContextToggles()
		if err := cfgStore.Save(appCfg); err != nil {
			log.Fatalf("voicewind: save default config: %v", err)
		}
	}

	secrets := config.NewMemorySecretsStore()
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		_ = secrets.Set(config.SecretLlmAPI, key)
	}
	if key := os.Getenv("ELEVENLABS_API_KEY"); key != "" {
		_ = secrets.Set(config.SecretSttCloudAPI, key)
	}
	llmKey, _, _ := secrets.Get(config.SecretLlmAPI)
	sttCloudKey, _, _ := secrets.Get(config.SecretSttCloudAPI)

	backends := map[string]sttbatch.Backend{
		"cloud": sttbatch.NewCloudBackend(sttCloudKey),
	}
	if modelPath := os.Getenv("VOICEWIND_WHISPER_MODEL_PATH"); modelPath != "" {
		local, err := sttbatch.OpenLocalBackend(modelPath)
		if err != nil {
			logger.Warn("local whisper backend unavailable, falling back to cloud only", "err", err)
		} else {
			defer local.Close()
			backends["local"] = local
		}
	}
	if _, ok := backends[appCfg.Defaults.SttProvider]; !ok {
		appCfg.Defaults.SttProvider = "cloud"
	}

	recorder, err := openRecorder(logger)
	if err != nil {
		log.Fatalf("voicewind: open microphone: %v", err)
	}
	defer recorder.Close()

	clipboard := insert.NewMemoryClipboard()
	inserter := insert.New(clipboard, insert.NoopKeystroker{})

	deps := controller.Deps{
		Defaults: appCfg.Defaults,
		Profiles: appCfg.Profiles,
		Prompts:  appCfg.Prompts,
		ContextProvider: platform.StaticProvider{
			App: config.AppIdentity{ProcessName: "voicewind-demo"},
		},
		Backends:  backends,
		Enhancer:  llm.NewEnhancer(),
		LlmAPIKey: llmKey,
		Inserter:  inserter,
		Logger:    logger,
		Recorder:  recorder,
		History:   historyStore,
		RealtimeOptions: sttrealtime.Options{
			ModelID:        "scribe_v1_realtime",
			CommitStrategy: sttrealtime.CommitVAD,
			AudioFormat:    sttrealtime.Format16000,
			VAD: sttrealtime.VADParams{
				SilenceThresholdMs:   600,
				ThresholdPerMille:    500,
				MinSpeechDurationMs:  250,
				MinSilenceDurationMs: 400,
			},
		},
		SttCloudAPIKey: sttCloudKey,
	}

	ctrl := controller.New(deps)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		for p := range ctrl.GlobalStatus() {
			if p.Error != "" {
				fmt.Printf("[%s] %s — %s\n", p.Stage, p.StageLabel, p.Error)
			} else {
				fmt.Printf("[%s] %s\n", p.Stage, p.StageLabel)
			}
		}
	}()
	go func() {
		for lv := range ctrl.MicLevels() {
			fmt.Printf("\rmic rms=%.3f peak=%.3f", lv.RMS, lv.Peak)
		}
	}()

	sig := make(chan os.Signal, 2)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2)

	fmt.Println("voicewind started. Send SIGUSR1 to toggle recording, SIGUSR2 to cancel, Ctrl+C to quit.")

	for {
		s := <-sig
		switch s {
		case syscall.SIGUSR1:
			ctrl.Toggle(ctx, config.EphemeralOverrides{})
		case syscall.SIGUSR2:
			ctrl.Cancel()
		default:
			fmt.Println("\nShutting down...")
			return
		}
	}
}

func openRecorder(logger session.Logger) (*audio.Recorder, error) {
	preferred := os.Getenv("VOICEWIND_INPUT_DEVICE")
	return audio.Open(preferred, logger)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var _ engine.Inserter = (*insert.Inserter)(nil)
