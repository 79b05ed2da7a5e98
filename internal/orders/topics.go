package orders

const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status.changed"
	TopicStockFailed        = "inventory.stock.failed"
	TopicLowStock           = "inventory.low_stock"
)

// PartitionKey keeps all events of one order on one partition, in order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
