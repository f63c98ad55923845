package balancer

import (
	"strconv"

	"github.com/segmentio/kafka-go"
)

// OrderIDBalancer 以訂單ID取模分區，同一張訂單的事件落在同一分區保持順序
// 事件的Key固定是十進位的訂單ID
type OrderIDBalancer struct {
	numPartitions int
}

func NewOrderIDBalancer(numPartitions int) *OrderIDBalancer {
	return &OrderIDBalancer{
		numPartitions: numPartitions,
	}
}

func (b *OrderIDBalancer) Balance(msg kafka.Message, partitions ...int) (partition int) {
	orderID, err := strconv.Atoi(string(msg.Key))
	if err != nil || orderID < 0 {
		return 0
	}

	// writer有帶可用分區清單時以清單為準
	if len(partitions) != 0 {
		return partitions[orderID%len(partitions)]
	}

	if b.numPartitions <= 0 {
		return 0
	}
	return orderID % b.numPartitions
}
