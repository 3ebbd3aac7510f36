package model

// Principal is an already-authenticated caller as established by the gateway.
type Principal struct {
	ID         string `json:"id"`
	Privileged bool   `json:"privileged"`
}

func (p Principal) Anonymous() bool {
	return p.ID == ""
}
