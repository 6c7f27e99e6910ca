package util

// Escape sequence scanner states.
const (
	ansiText = iota
	ansiEsc
	ansiCSI
	ansiString // OSC, DCS, APC and PM bodies, ended by BEL or ESC \
)

// StripANSI drops terminal control sequences from output captured through a
// PTY (remote shells with a tty often emit color and title sequences).
// TAB, LF and CR survive; every other C0 control is dropped.
func StripANSI(b []byte) []byte {
	out := make([]byte, 0, len(b))
	state := ansiText
	pendingEsc := false
	for _, c := range b {
		switch state {
		case ansiText:
			switch {
			case c == 0x1b:
				state = ansiEsc
			case c >= 0x20 || c == '\n' || c == '\r' || c == '\t':
				out = append(out, c)
			}
		case ansiEsc:
			switch c {
			case '[':
				state = ansiCSI
			case ']', 'P', '_', '^':
				state = ansiString
				pendingEsc = false
			default:
				state = ansiText
			}
		case ansiCSI:
			if c >= 0x40 && c <= 0x7e {
				state = ansiText
			}
		case ansiString:
			switch {
			case c == 0x07:
				state = ansiText
			case pendingEsc:
				if c == '\\' {
					state = ansiText
				}
				pendingEsc = false
			case c == 0x1b:
				pendingEsc = true
			}
		}
	}
	return out
}
