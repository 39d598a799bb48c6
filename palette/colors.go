package palette

import "image/color"

// Names for the default palette entries.
const (
	Transparent = iota
	Black
	DarkGray
	Gray
	LightGray
	White
	DarkRed
	Crimson
	Firebrick
	Red
	DarkGreen
	Green
	LimeGreen
	BrightGreen
	DarkBlue
	MediumBlue
	DodgerBlue
	Blue
	Olive
	YellowGreen
	YellowOlive
	Yellow
	Teal
	DarkCyan
	LightCyan
	Cyan
	Purple
	MediumPurple
	Magenta
	Fuchsia
	Orange
	LightBlue
)

var defaultColors = [Size]color.NRGBA{
	Transparent:  {0x00, 0x00, 0x00, 0x00},
	Black:        {0x00, 0x00, 0x00, 0xff},
	DarkGray:     {0x44, 0x44, 0x44, 0xff},
	Gray:         {0x88, 0x88, 0x88, 0xff},
	LightGray:    {0xbb, 0xbb, 0xbb, 0xff},
	White:        {0xff, 0xff, 0xff, 0xff},
	DarkRed:      {0x44, 0x00, 0x00, 0xff},
	Crimson:      {0x88, 0x00, 0x00, 0xff},
	Firebrick:    {0xbb, 0x00, 0x00, 0xff},
	Red:          {0xff, 0x00, 0x00, 0xff},
	DarkGreen:    {0x00, 0x44, 0x00, 0xff},
	Green:        {0x00, 0x88, 0x00, 0xff},
	LimeGreen:    {0x00, 0xbb, 0x00, 0xff},
	BrightGreen:  {0x00, 0xff, 0x00, 0xff},
	DarkBlue:     {0x00, 0x00, 0x44, 0xff},
	MediumBlue:   {0x00, 0x00, 0x88, 0xff},
	DodgerBlue:   {0x00, 0x00, 0xbb, 0xff},
	Blue:         {0x00, 0x00, 0xff, 0xff},
	Olive:        {0x44, 0x44, 0x00, 0xff},
	YellowGreen:  {0x88, 0x88, 0x00, 0xff},
	YellowOlive:  {0xbb, 0xbb, 0x00, 0xff},
	Yellow:       {0xff, 0xff, 0x00, 0xff},
	Teal:         {0x00, 0x44, 0x44, 0xff},
	DarkCyan:     {0x00, 0x88, 0x88, 0xff},
	LightCyan:    {0x00, 0xbb, 0xbb, 0xff},
	Cyan:         {0x00, 0xff, 0xff, 0xff},
	Purple:       {0x44, 0x00, 0x44, 0xff},
	MediumPurple: {0x88, 0x00, 0x88, 0xff},
	Magenta:      {0xbb, 0x00, 0xbb, 0xff},
	Fuchsia:      {0xff, 0x00, 0xff, 0xff},
	Orange:       {0xff, 0x88, 0x00, 0xff},
	LightBlue:    {0x88, 0x88, 0xff, 0xff},
}
