package kafka_client

import "time"

const (
	KAFKA_TOPIC_RAW_CONTENT = "raw_content"
	SOURCE_REDDIT           = "reddit"

	FLUSH_TIMEOUT    = 5 * time.Second
	DELIVERY_TIMEOUT = 30 * time.Second
)
