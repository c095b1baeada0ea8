package repository

// Repos agrupa los repositorios atados a una misma transacción.
// Todo lo que se lee o escribe a través de un Repos se confirma o descarta junto.
type Repos struct {
	Stock    StockRepository
	History  StockHistoryRepository
	Delivery DeliveryRepository
	Product  ProductRepository
	Client   ClientRepository
	User     UserRepository
}
