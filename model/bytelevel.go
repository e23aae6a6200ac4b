package model

// ByteLevelRune maps a byte to the printable rune GPT-2 style byte-level
// vocabularies use for it.
func ByteLevelRune(b byte) rune {
	r := rune(b)
	switch {
	case r == 0x00ad:
		r = 0x0143
	case r <= 0x0020:
		r = r + 0x0100
	case r >= 0x007f && r <= 0x00a0:
		r = r + 0x00a2
	}
	return r
}

// ByteLevelByte reverses ByteLevelRune. It reports false for runes outside
// the byte-level alphabet.
func ByteLevelByte(r rune) (byte, bool) {
	switch {
	case r == 0x0143:
		return 0xad, true
	case r >= 0x0100 && r <= 0x0120:
		return byte(r - 0x0100), true
	case r >= 0x0121 && r <= 0x0142:
		return byte(r - 0x00a2), true
	case r > 0x0020 && r < 0x007f, r > 0x00a0 && r <= 0x00ff && r != 0x00ad:
		return byte(r), true
	}
	return 0, false
}
