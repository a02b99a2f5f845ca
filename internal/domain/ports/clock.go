package ports

import "time"

// Clock abstrai o relógio para que o horário das tentativas seja testável
type Clock interface {
	Now() time.Time
}

// ClockFunc adapta uma função para Clock
type ClockFunc func() time.Time

// Now implementa Clock
func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock é o relógio real, em UTC
var SystemClock Clock = ClockFunc(func() time.Time { return time.Now().UTC() })
