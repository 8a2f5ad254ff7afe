package clock

import "time"

// Clock abstrai o relógio para que as transições de ciclo de vida sejam
// testáveis de forma determinística.
type Clock interface {
	Now() time.Time
}

// System lê o relógio real
type System struct{}

func (System) Now() time.Time { return time.Now() }
