package core

import (
	"context"
	"fmt"

	"github.com/najoast/unitrt/logging"
)

// messenger delivers one message to one unit. It protects the lanes from
// problems in the units: errors and panics are logged and dropped.
type messenger struct {
	ctx    context.Context
	unit   *Unit
	msg    any
	logger logging.Logger
}

func (m *messenger) run() {
	defer func() {
		if r := recover(); r != nil {
			m.unit.failed.Add(1)
			m.logger.Error("unit panicked processing message",
				"unit", m.unit.id, "message_type", fmt.Sprintf("%T", m.msg), "panic", r)
		}
	}()

	if err := m.unit.deliver(m.ctx, m.msg); err != nil {
		m.unit.failed.Add(1)
		m.logger.Error("error processing message",
			"unit", m.unit.id, "message_type", fmt.Sprintf("%T", m.msg), "error", err)
		return
	}
	m.unit.delivered.Add(1)
}
