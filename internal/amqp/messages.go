package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"painel/internal/core"
)

// DatasetRefreshedMessage announces that a new import is available.
// Consumers drop their cached dataset; the payload is informational.
type DatasetRefreshedMessage struct {
	ID        string            `json:"id"`
	Source    string            `json:"source"`
	Rows      map[core.Kind]int `json:"rows"`
	Timestamp time.Time         `json:"timestamp"`
}

func NewDatasetRefreshedMessage(source string, rows map[core.Kind]int) *DatasetRefreshedMessage {
	return &DatasetRefreshedMessage{
		ID:        uuid.NewString(),
		Source:    source,
		Rows:      rows,
		Timestamp: time.Now(),
	}
}

// TotalRows sums the row counts of every dataset in the message.
func (m *DatasetRefreshedMessage) TotalRows() int {
	total := 0
	for _, n := range m.Rows {
		total += n
	}
	return total
}

func (m *DatasetRefreshedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func DatasetRefreshedMessageFromJSON(data []byte) (*DatasetRefreshedMessage, error) {
	var msg DatasetRefreshedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
