// Package key describes keyboard input delivered to the editing surface.
//
//   - Key: a special key (Enter, Tab, arrows, ...) or KeyRune for characters
//   - Modifier: Ctrl, Alt, Shift and Meta as a bit set
//   - Event: one key press with its modifiers
//
// Hotkeys are configured as strings and parsed with Parse:
//
//   - Plain: "a", "Enter", "Escape"
//   - Joined: "Ctrl+B", "Ctrl+Shift+Backspace"
//   - Bracketed: "<C-b>", "<C-S-BS>", "<CR>"
package key
