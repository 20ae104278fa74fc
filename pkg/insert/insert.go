// Package insert implements the clipboard-snapshot-and-restore algorithm
// that places finished text into the focused application. The
// actual clipboard and keystroke primitives are out of scope and
// are modeled here as two narrow interfaces the host platform satisfies.
package insert

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Mode selects whether a trailing Enter keystroke follows the paste.
type Mode int

const (
	ModePaste Mode = iota
	ModePasteAndEnter
)

// ErrPermissionDenied is returned on platforms that require an
// accessibility/automation permission the user hasn't granted.
var ErrPermissionDenied = errors.New("insert: accessibility/automation permission not granted")

// Clipboard is the narrow system-clipboard contract the host platform
// implements. ChangeCount must increase (a platform-defined monotonic
// counter) every time any process, including this one, changes the
// clipboard contents.
type Clipboard interface {
	ReadAll(ctx context.Context) (snapshot []byte, format string, err error)
	WriteText(ctx context.Context, text string) error
	ChangeCount(ctx context.Context) (uint64, error)
	Restore(ctx context.Context, snapshot []byte, format string) error
}

// Keystroker posts the OS-level paste and Enter shortcuts to the foreground
// application.
type Keystroker interface {
	PostPaste(ctx context.Context) error
	PostEnter(ctx context.Context) error
}

const (
	writeSettleDelay = 50 * time.Millisecond
	keySettleDelay   = 50 * time.Millisecond
	pasteSettleDelay = 1000 * time.Millisecond
)

// Inserter drives Clipboard/Keystroker through the snapshot -> write ->
// paste -> restore sequence.
type Inserter struct {
	Clipboard Clipboard
	Keystroke Keystroker
	sleep     func(time.Duration)
}

// New builds an Inserter backed by the given platform ports.
func New(clipboard Clipboard, keystroke Keystroker) *Inserter {
	return &Inserter{
		Clipboard: clipboard,
		Keystroke: keystroke,
		sleep:     time.Sleep,
	}
}

// SetSleepForTest overrides the paste/settle delay function, letting
// other packages' tests drive Insert without waiting out the real
// 50ms/1000ms settle timings.
func (in *Inserter) SetSleepForTest(fn func(time.Duration)) {
	in.sleep = fn
}

func wrapPermission(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
}

// Insert snapshots the clipboard, writes text, pastes it (and an Enter
// keystroke when mode is ModePasteAndEnter), then restores the prior
// clipboard contents only if the change counter afterward matches either
// the value right after our write or the value from before it — anything
// else means the user or target app changed the clipboard in the
// meantime, so it is left alone.
func (in *Inserter) Insert(ctx context.Context, text string, mode Mode) error {
	snapshot, format, err := in.Clipboard.ReadAll(ctx)
	if err != nil {
		return wrapPermission(err)
	}
	preWriteCount, err := in.Clipboard.ChangeCount(ctx)
	if err != nil {
		return wrapPermission(err)
	}

	if err := in.Clipboard.WriteText(ctx, text); err != nil {
		return wrapPermission(err)
	}
	postWriteCount, err := in.Clipboard.ChangeCount(ctx)
	if err != nil {
		return wrapPermission(err)
	}

	in.sleep(writeSettleDelay)

	if err := in.Keystroke.PostPaste(ctx); err != nil {
		return wrapPermission(err)
	}
	if mode == ModePasteAndEnter {
		in.sleep(keySettleDelay)
		if err := in.Keystroke.PostEnter(ctx); err != nil {
			return wrapPermission(err)
		}
	}

	in.sleep(pasteSettleDelay)

	afterPasteCount, err := in.Clipboard.ChangeCount(ctx)
	if err != nil {
		return wrapPermission(err)
	}

	if afterPasteCount == postWriteCount || afterPasteCount == preWriteCount {
		return in.Clipboard.Restore(ctx, snapshot, format)
	}
	return nil
}
