package kafka_client

type KafkaConfig struct {
	Broker   string
	Topic    string
	ClientID string
}

// Enabled reports whether a broker was configured at all.
func (c KafkaConfig) Enabled() bool {
	return c.Broker != ""
}

func (c KafkaConfig) topic() string {
	if c.Topic == "" {
		return KAFKA_TOPIC_RAW_CONTENT
	}
	return c.Topic
}
