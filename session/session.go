// Package session accumulates text fragments and renders them into one PDF.
package session

import (
	"errors"
	"fmt"
)

// Sentinel errors for session operations.
var (
	ErrEmptyInput     = errors.New("nothing to render: no fragments received yet")
	ErrUnknownSession = errors.New("unknown session")
)

// 渲染阶段，用于 RenderError。
const (
	StageAssemble = "assemble"
	StageLayout   = "layout"
	StageRender   = "render"
	StageWrite    = "write"
)

// RenderError 表示一次渲染在某个阶段失败；会话本身不受影响，可以直接重试。
type RenderError struct {
	Stage string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render failed at %s: %v", e.Stage, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Session 是已接收片段的不可变快照。Append 与 Reset 返回新值，原值不变。
type Session struct {
	fragments []string
}

// New 用给定片段创建会话。
func New(fragments ...string) Session {
	return Session{fragments: append([]string(nil), fragments...)}
}

// Append 追加一个片段。
func (s Session) Append(text string) Session {
	next := make([]string, len(s.fragments), len(s.fragments)+1)
	copy(next, s.fragments)
	return Session{fragments: append(next, text)}
}

// Reset 清空所有片段。
func (s Session) Reset() Session {
	return Session{}
}

// Fragments 返回片段副本。
func (s Session) Fragments() []string {
	return append([]string(nil), s.fragments...)
}

// Len 返回片段数量。
func (s Session) Len() int { return len(s.fragments) }
