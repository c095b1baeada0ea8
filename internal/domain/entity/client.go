package entity

// Client destinatario de las entregas.
type Client struct {
	ID   string
	Name string
}
