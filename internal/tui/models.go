package tui

type View int

const (
	ViewSearch View = iota
	ViewResults
	ViewDetail
	ViewHistory
	ViewFind
	ViewBrowse
)
