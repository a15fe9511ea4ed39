package rabbitmq

// QueueConfig очередь и ключ, которым она привязана к обменнику.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// CreditQueues очереди потребителей событий кредитного журнала.
func CreditQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "credits.audit", RoutingKey: "credit.*"},
		{QueueName: "credits.notifications", RoutingKey: "credit.expired"},
	}
}
