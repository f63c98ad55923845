package producer

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/RoyceAzure/lab/bookstore/internal/domain/model"
	"github.com/RoyceAzure/lab/rj_kafka/kafka/message"
	"github.com/RoyceAzure/lab/rj_kafka/kafka/producer"
	"github.com/google/uuid"
)

type OrderEventType string

var (
	OrderEventStatusChanged OrderEventType = "order_status_changed"
)

// OrderStatusEvent 訂單狀態異動通知，給下游(出貨、客服信)訂閱
type OrderStatusEvent struct {
	EventID       string              `json:"event_id"`
	OrderID       uint                `json:"order_id"`
	UserID        uint                `json:"user_id"`
	OrderStatus   model.OrderStatus   `json:"order_status"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
	OccurredAt    time.Time           `json:"occurred_at"`
}

type OrderNotifier struct {
	producer producer.Producer
}

func NewOrderNotifier(producer producer.Producer) *OrderNotifier {
	return &OrderNotifier{producer: producer}
}

// NotifyStatusChanged 發佈狀態異動事件
// best effort，呼叫端只記log不可因此中斷狀態流轉
func (p *OrderNotifier) NotifyStatusChanged(ctx context.Context, order *model.OrderHeader) error {
	evt := OrderStatusEvent{
		EventID:       uuid.NewString(),
		OrderID:       order.OrderID,
		UserID:        order.UserID,
		OrderStatus:   order.OrderStatus,
		PaymentStatus: order.PaymentStatus,
		OccurredAt:    time.Now().UTC(),
	}

	msg, err := p.convertToMessage(evt)
	if err != nil {
		return err
	}

	return p.producer.Produce(ctx, []message.Message{msg})
}

func (p *OrderNotifier) convertToMessage(evt OrderStatusEvent) (message.Message, error) {
	eventValue, err := json.Marshal(evt)
	if err != nil {
		return message.Message{}, err
	}

	return message.Message{
		Key:   []byte(strconv.FormatUint(uint64(evt.OrderID), 10)),
		Value: eventValue,
		Headers: []message.Header{
			{
				Key:   "event_type",
				Value: []byte(OrderEventStatusChanged),
			},
		},
	}, nil
}
