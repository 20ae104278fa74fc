// Package platform defines the narrow contract the host shell satisfies to
// tell SessionEngine which application is focused and what ambient context
// (selected text, clipboard, window title, vocabulary) is available to hand
// to the LLM enhancer.
package platform

import (
	"context"

	"github.com/Clouder0/voicewin/pkg/config"
)

// ContextSnapshot is the ambient application context gathered at the start
// of a session, gated into the enhancement prompt by EffectiveConfig's
// context toggles.
type ContextSnapshot struct {
	Clipboard        string
	SelectedText     string
	WindowContext    string
	CustomVocabulary string
}

// AppContextProvider is implemented by the host shell. It wraps the
// foreground-window enumeration and clipboard/selection reads, external
// OS-specific collaborators this package only depends on as an interface.
type AppContextProvider interface {
	ForegroundApp(ctx context.Context) (config.AppIdentity, error)
	SnapshotContext(ctx context.Context) (ContextSnapshot, error)
}

// StaticProvider is a fixed-answer AppContextProvider, the default used by
// cmd/voicewind and by tests until a host wires a real window-enumeration
// backend.
type StaticProvider struct {
	App      config.AppIdentity
	Snapshot ContextSnapshot
}

func (p StaticProvider) ForegroundApp(ctx context.Context) (config.AppIdentity, error) {
	return p.App, nil
}

func (p StaticProvider) SnapshotContext(ctx context.Context) (ContextSnapshot, error) {
	return p.Snapshot, nil
}
