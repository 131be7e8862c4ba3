// Package ime exposes the chord keyboard to native keyboard extensions.
//
// # Architecture Overview
//
// The host platform owns the view and the text field. It forwards raw touch
// samples and control presses to a MobileKeyboard and implements
// TextDocumentProxy so the core can insert and delete text:
//
//	Touch / control press
//	        ↓
//	[MobileKeyboard]  →  keyboard.Keyboard  →  gesture + braille
//	        ↓
//	TextDocumentProxy.InsertText / DeleteBackward
//
// # Platform Support
//
//	┌──────────┬─────────────────────────────────────────────────────────┐
//	│ Platform │ Framework                                               │
//	├──────────┼─────────────────────────────────────────────────────────┤
//	│ iOS      │ Custom Keyboard Extension - UIInputViewController       │
//	│ Android  │ InputMethodService - android.inputmethodservice         │
//	└──────────┴─────────────────────────────────────────────────────────┘
//
// # gomobile Constraints
//
// Exported signatures use only int, int64, float64, bool, string, and
// interfaces built from those, so the package binds without adapters.
// Collections such as the highlighted zones or the touch trail are returned
// as JSON strings.
//
// All methods are safe to call from the host's main thread. Delete
// auto-repeat runs on its own timer goroutine and reaches the proxy from
// there; hosts that require main-thread text edits should hop inside their
// TextDocumentProxy implementation.
package ime
