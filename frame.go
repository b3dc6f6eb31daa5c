package gkbus

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// RawFrame is the unit exchanged with hardware. ID is only meaningful
// for CAN, K-Line frames leave it zero.
type RawFrame struct {
	ID       uint32
	Extended bool
	Data     []byte
}

// NewFrame copies data into a new frame.
func NewFrame(id uint32, data []byte) RawFrame {
	d := make([]byte, len(data))
	copy(d, data)
	return RawFrame{ID: id, Data: d}
}

var (
	yellow = color.New(color.FgHiBlue).SprintfFunc()
	green  = color.New(color.FgGreen).SprintfFunc()
)

func (f RawFrame) String() string {
	var out strings.Builder
	out.WriteString(fmt.Sprintf("0x%03X", f.ID) + " || ")
	out.WriteString(strconv.Itoa(len(f.Data)) + " || ")
	out.WriteString(HexView(f.Data))
	return out.String()
}

func (f RawFrame) ColorString() string {
	var out strings.Builder
	out.WriteString(green("0x%03X", f.ID) + " || ")
	out.WriteString(strconv.Itoa(len(f.Data)) + " || ")
	out.WriteString(yellow("%s", HexView(f.Data)))
	return out.String()
}

// HexView renders data as space separated hex octets.
func HexView(data []byte) string {
	var hexView strings.Builder
	for i, b := range data {
		hexView.WriteString(fmt.Sprintf("%02X", b))
		if i != len(data)-1 {
			hexView.WriteString(" ")
		}
	}
	return hexView.String()
}
