package fb

// A small slice of iansmith-mazarin's colors.go Dracula-derived palette:
// XRGB8888 constants for the states kernel/panicwalk and the boot banner
// actually draw (background, ordinary text, error/panic red).
const (
	ColorBackground uint32 = 0x0019_1B70 // midnight blue
	ColorText       uint32 = 0x00B8_F171 // bright green
	ColorError      uint32 = 0x00FF_7882 // bright red
	ColorWarning    uint32 = 0x00FF_E580 // bright yellow
)
