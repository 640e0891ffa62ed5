// Package logx gives every background loop a bracketed identifier prefix,
// a terse single-line-per-event register with no emoji tagging.
package logx

import "log"

// Logger prefixes every line with a loop identifier, e.g. "[scanner]".
type Logger struct {
	tag string
}

func New(tag string) *Logger {
	return &Logger{tag: "[" + tag + "] "}
}

func (l *Logger) Printf(format string, args ...interface{}) {
	log.Printf(l.tag+format, args...)
}

func (l *Logger) Println(args ...interface{}) {
	log.Println(append([]interface{}{l.tag}, args...)...)
}
