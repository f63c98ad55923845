package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/RoyceAzure/lab/bookstore/internal/domain/model"
	"github.com/stretchr/testify/require"
)

func staffCaller() model.Caller {
	return model.Caller{UserID: 1, Role: model.RoleEmployee}
}

func TestGetOrderAccessControl(t *testing.T) {
	resetTables(t)
	svc := NewOrderService(testDao, nil, nil, 30)

	owner := createUser(t, model.RoleIndividual)
	stranger := createUser(t, model.RoleIndividual)
	order := createOrder(t, owner.UserID, model.OrderStatusPending, model.PaymentStatusPending, "")

	got, err := svc.GetOrder(context.Background(), model.Caller{UserID: owner.UserID, Role: owner.Role}, order.OrderID)
	require.NoError(t, err)
	require.Equal(t, order.OrderID, got.OrderID)
	// 訂單ID與使用者ID刻意錯開，關聯要走user_id外鍵才取得回來
	require.Equal(t, owner.UserID, got.User.UserID)

	_, err = svc.GetOrder(context.Background(), model.Caller{UserID: stranger.UserID, Role: stranger.Role}, order.OrderID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.GetOrder(context.Background(), staffCaller(), order.OrderID)
	require.NoError(t, err)

	_, err = svc.GetOrder(context.Background(), staffCaller(), 9999)
	require.ErrorIs(t, err, ErrOrderNotExist)
}

func TestListOrdersScopesAndFilters(t *testing.T) {
	resetTables(t)
	svc := NewOrderService(testDao, nil, nil, 30)

	alice := createUser(t, model.RoleIndividual)
	bob := createUser(t, model.RoleCompany)
	createOrder(t, alice.UserID, model.OrderStatusShipped, model.PaymentStatusApproved, "")
	createOrder(t, alice.UserID, model.OrderStatusProcessing, model.PaymentStatusApproved, "")
	createOrder(t, bob.UserID, model.OrderStatusShipped, model.PaymentStatusDelayedPayment, "")

	// 後台看全部
	all, err := svc.ListOrders(context.Background(), staffCaller(), OrderListAll)
	require.NoError(t, err)
	require.Len(t, all, 3)

	// 一般使用者只看得到自己的
	mine, err := svc.ListOrders(context.Background(), model.Caller{UserID: alice.UserID, Role: alice.Role}, OrderListAll)
	require.NoError(t, err)
	require.Len(t, mine, 2)

	completed, err := svc.ListOrders(context.Background(), staffCaller(), OrderListCompleted)
	require.NoError(t, err)
	require.Len(t, completed, 2)

	inProcess, err := svc.ListOrders(context.Background(), staffCaller(), OrderListInProcess)
	require.NoError(t, err)
	require.Len(t, inProcess, 1)

	// pending過濾的是月結未收款
	pendingPayment, err := svc.ListOrders(context.Background(), staffCaller(), OrderListPendingPayment)
	require.NoError(t, err)
	require.Len(t, pendingPayment, 1)
	require.Equal(t, bob.UserID, pendingPayment[0].UserID)
}

func TestApprove(t *testing.T) {
	resetTables(t)
	svc := NewOrderService(testDao, nil, nil, 30)

	user := createUser(t, model.RoleIndividual)
	paid := createOrder(t, user.UserID, model.OrderStatusPending, model.PaymentStatusApproved, "pi_1")

	_, err := svc.Approve(context.Background(), model.Caller{UserID: user.UserID, Role: user.Role}, paid.OrderID)
	require.ErrorIs(t, err, ErrForbidden)

	got, err := svc.Approve(context.Background(), staffCaller(), paid.OrderID)
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusApproved, got.OrderStatus)
	require.EqualValues(t, 2, got.Version)

	// 重複核准擋下
	_, err = svc.Approve(context.Background(), staffCaller(), paid.OrderID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	// 未收款又非月結不可核准
	unpaid := createOrder(t, user.UserID, model.OrderStatusPending, model.PaymentStatusPending, "")
	_, err = svc.Approve(context.Background(), staffCaller(), unpaid.OrderID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	// 月結可直接核准
	delayed := createOrder(t, user.UserID, model.OrderStatusPending, model.PaymentStatusDelayedPayment, "")
	got, err = svc.Approve(context.Background(), staffCaller(), delayed.OrderID)
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusApproved, got.OrderStatus)
}

func TestStartProcessing(t *testing.T) {
	resetTables(t)
	svc := NewOrderService(testDao, nil, nil, 30)

	user := createUser(t, model.RoleIndividual)
	order := createOrder(t, user.UserID, model.OrderStatusApproved, model.PaymentStatusApproved, "pi_1")

	got, err := svc.StartProcessing(context.Background(), staffCaller(), order.OrderID)
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusProcessing, got.OrderStatus)

	// 不可跳過核准直接處理
	pending := createOrder(t, user.UserID, model.OrderStatusPending, model.PaymentStatusApproved, "pi_2")
	_, err = svc.StartProcessing(context.Background(), staffCaller(), pending.OrderID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestShipRequiresShipmentInfo(t *testing.T) {
	resetTables(t)
	svc := NewOrderService(testDao, nil, nil, 30)

	user := createUser(t, model.RoleIndividual)
	order := createOrder(t, user.UserID, model.OrderStatusProcessing, model.PaymentStatusApproved, "pi_1")

	_, err := svc.Ship(context.Background(), staffCaller(), order.OrderID, "", "UPS")
	require.ErrorIs(t, err, ErrMissingShipmentInfo)
	_, err = svc.Ship(context.Background(), staffCaller(), order.OrderID, "1Z999", "")
	require.ErrorIs(t, err, ErrMissingShipmentInfo)

	// 驗證失敗沒有動到訂單
	require.Equal(t, model.OrderStatusProcessing, getOrder(t, order.OrderID).OrderStatus)
}

func TestShip(t *testing.T) {
	resetTables(t)
	svc := NewOrderService(testDao, nil, nil, 30)

	user := createUser(t, model.RoleIndividual)
	order := createOrder(t, user.UserID, model.OrderStatusProcessing, model.PaymentStatusApproved, "pi_1")

	got, err := svc.Ship(context.Background(), staffCaller(), order.OrderID, "1Z999", "UPS")
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusShipped, got.OrderStatus)
	require.Equal(t, "1Z999", got.TrackingNumber)
	require.Equal(t, "UPS", got.Carrier)
	require.NotNil(t, got.ShippingDate)
	// 已付款訂單不設月結期限
	require.Nil(t, got.PaymentDueDate)

	// shipped是終態
	_, err = svc.Ship(context.Background(), staffCaller(), order.OrderID, "1Z999", "UPS")
	require.ErrorIs(t, err, ErrInvalidTransition)

	// 只有processing可出貨
	pending := createOrder(t, user.UserID, model.OrderStatusPending, model.PaymentStatusApproved, "pi_2")
	_, err = svc.Ship(context.Background(), staffCaller(), pending.OrderID, "1Z999", "UPS")
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestShipDelayedPaymentSetsDueDate(t *testing.T) {
	resetTables(t)
	svc := NewOrderService(testDao, nil, nil, 30)

	user := createUser(t, model.RoleCompany)
	order := createOrder(t, user.UserID, model.OrderStatusProcessing, model.PaymentStatusDelayedPayment, "")

	got, err := svc.Ship(context.Background(), staffCaller(), order.OrderID, "1Z999", "UPS")
	require.NoError(t, err)
	require.NotNil(t, got.PaymentDueDate)
	require.WithinDuration(t, time.Now().UTC().AddDate(0, 0, 30), *got.PaymentDueDate, time.Minute)
}

func TestCancelRoleRules(t *testing.T) {
	resetTables(t)
	svc := NewOrderService(testDao, nil, nil, 30)

	owner := createUser(t, model.RoleIndividual)
	stranger := createUser(t, model.RoleIndividual)

	pending := createOrder(t, owner.UserID, model.OrderStatusPending, model.PaymentStatusPending, "")
	_, err := svc.Cancel(context.Background(), model.Caller{UserID: stranger.UserID, Role: stranger.Role}, pending.OrderID)
	require.ErrorIs(t, err, ErrForbidden)

	got, err := svc.Cancel(context.Background(), model.Caller{UserID: owner.UserID, Role: owner.Role}, pending.OrderID)
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusCancelled, got.OrderStatus)

	// 本人只能取消pending，進入處理流程後要找客服
	processing := createOrder(t, owner.UserID, model.OrderStatusProcessing, model.PaymentStatusDelayedPayment, "")
	_, err = svc.Cancel(context.Background(), model.Caller{UserID: owner.UserID, Role: owner.Role}, processing.OrderID)
	require.ErrorIs(t, err, ErrForbidden)

	// admin可取消任何未終結訂單
	admin := model.Caller{UserID: 99, Role: model.RoleAdmin}
	got, err = svc.Cancel(context.Background(), admin, processing.OrderID)
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusCancelled, got.OrderStatus)

	// 終態不可再取消
	shipped := createOrder(t, owner.UserID, model.OrderStatusShipped, model.PaymentStatusApproved, "pi_x")
	_, err = svc.Cancel(context.Background(), admin, shipped.OrderID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelRefundsPaidOrder(t *testing.T) {
	resetTables(t)
	gateway := &fakeGateway{}
	svc := NewOrderService(testDao, gateway, nil, 30)

	user := createUser(t, model.RoleIndividual)
	order := createOrder(t, user.UserID, model.OrderStatusApproved, model.PaymentStatusApproved, "pi_refund")

	admin := model.Caller{UserID: 99, Role: model.RoleAdmin}
	got, err := svc.Cancel(context.Background(), admin, order.OrderID)
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusCancelled, got.OrderStatus)
	require.Equal(t, model.PaymentStatusRefunded, got.PaymentStatus)
	require.Equal(t, 1, gateway.refundCalls["pi_refund"])
}

func TestCancelRetryAfterRefundFailure(t *testing.T) {
	resetTables(t)
	gateway := &fakeGateway{refundErr: errors.New("gateway down")}
	svc := NewOrderService(testDao, gateway, nil, 30)

	user := createUser(t, model.RoleIndividual)
	order := createOrder(t, user.UserID, model.OrderStatusApproved, model.PaymentStatusApproved, "pi_retry")
	admin := model.Caller{UserID: 99, Role: model.RoleAdmin}

	_, err := svc.Cancel(context.Background(), admin, order.OrderID)
	require.ErrorIs(t, err, ErrGateway)

	// 退款沒成功，狀態不落地
	saved := getOrder(t, order.OrderID)
	require.Equal(t, model.OrderStatusApproved, saved.OrderStatus)
	require.Equal(t, model.PaymentStatusApproved, saved.PaymentStatus)

	// 重試帶同一個關聯代號，重複退款由閘道冪等吸收
	gateway.refundErr = nil
	got, err := svc.Cancel(context.Background(), admin, order.OrderID)
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusCancelled, got.OrderStatus)
	require.Equal(t, 2, gateway.refundCalls["pi_retry"])
}

func TestCancelPaidWithoutGateway(t *testing.T) {
	resetTables(t)
	svc := NewOrderService(testDao, nil, nil, 30)

	user := createUser(t, model.RoleIndividual)
	order := createOrder(t, user.UserID, model.OrderStatusApproved, model.PaymentStatusApproved, "pi_1")
	admin := model.Caller{UserID: 99, Role: model.RoleAdmin}

	_, err := svc.Cancel(context.Background(), admin, order.OrderID)
	require.ErrorIs(t, err, ErrGateway)
}

func TestConfirmPaymentSucceeded(t *testing.T) {
	resetTables(t)
	svc := NewOrderService(testDao, nil, nil, 30)

	user := createUser(t, model.RoleIndividual)
	createOrder(t, user.UserID, model.OrderStatusPending, model.PaymentStatusPending, "pi_ok")

	got, err := svc.ConfirmPayment(context.Background(), "pi_ok", PaymentSucceeded)
	require.NoError(t, err)
	require.Equal(t, model.PaymentStatusApproved, got.PaymentStatus)
	require.NotNil(t, got.PaymentDate)
	// 收款成功連動訂單核准
	require.Equal(t, model.OrderStatusApproved, got.OrderStatus)

	// webhook重送是冪等的
	again, err := svc.ConfirmPayment(context.Background(), "pi_ok", PaymentSucceeded)
	require.NoError(t, err)
	require.Equal(t, model.PaymentStatusApproved, again.PaymentStatus)
	require.Equal(t, got.Version, again.Version)
}

func TestConfirmPaymentFailed(t *testing.T) {
	resetTables(t)
	svc := NewOrderService(testDao, nil, nil, 30)

	user := createUser(t, model.RoleIndividual)
	createOrder(t, user.UserID, model.OrderStatusPending, model.PaymentStatusPending, "pi_bad")

	got, err := svc.ConfirmPayment(context.Background(), "pi_bad", PaymentFailed)
	require.NoError(t, err)
	require.Equal(t, model.PaymentStatusRejected, got.PaymentStatus)
	// 訂單留在pending讓客戶重新付款
	require.Equal(t, model.OrderStatusPending, got.OrderStatus)
}

func TestConfirmPaymentUnknownToken(t *testing.T) {
	resetTables(t)
	svc := NewOrderService(testDao, nil, nil, 30)

	_, err := svc.ConfirmPayment(context.Background(), "pi_nobody", PaymentSucceeded)
	require.ErrorIs(t, err, ErrOrderNotExist)
}

func TestNotifierReceivesTransitions(t *testing.T) {
	resetTables(t)
	notifier := &fakeNotifier{}
	svc := NewOrderService(testDao, nil, notifier, 30)

	user := createUser(t, model.RoleIndividual)
	order := createOrder(t, user.UserID, model.OrderStatusPending, model.PaymentStatusApproved, "pi_1")

	_, err := svc.Approve(context.Background(), staffCaller(), order.OrderID)
	require.NoError(t, err)
	require.Len(t, notifier.events, 1)
	require.Equal(t, order.OrderID, notifier.events[0].OrderID)
	require.Equal(t, model.OrderStatusApproved, notifier.events[0].OrderStatus)

	// 通知失敗不影響已提交的流轉
	notifier.err = errors.New("broker down")
	got, err := svc.StartProcessing(context.Background(), staffCaller(), order.OrderID)
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusProcessing, got.OrderStatus)
	require.Equal(t, model.OrderStatusProcessing, getOrder(t, order.OrderID).OrderStatus)
}

func TestUpdateShippingDetails(t *testing.T) {
	resetTables(t)
	svc := NewOrderService(testDao, nil, nil, 30)

	user := createUser(t, model.RoleIndividual)
	order := createOrder(t, user.UserID, model.OrderStatusProcessing, model.PaymentStatusApproved, "pi_1")

	_, err := svc.Ship(context.Background(), staffCaller(), order.OrderID, "1Z999", "UPS")
	require.NoError(t, err)

	_, err = svc.UpdateShippingDetails(context.Background(), model.Caller{UserID: user.UserID, Role: user.Role}, &model.OrderHeader{OrderID: order.OrderID})
	require.ErrorIs(t, err, ErrForbidden)

	got, err := svc.UpdateShippingDetails(context.Background(), staffCaller(), &model.OrderHeader{
		OrderID:       order.OrderID,
		Name:          "Bob Wang",
		PhoneNumber:   "0987654321",
		StreetAddress: "2 Side St",
		City:          "Kaohsiung",
	})
	require.NoError(t, err)
	require.Equal(t, "Bob Wang", got.Name)
	require.Equal(t, "2 Side St", got.StreetAddress)
	// 承運商與單號沒填值就保留原值
	require.Equal(t, "UPS", got.Carrier)
	require.Equal(t, "1Z999", got.TrackingNumber)

	got, err = svc.UpdateShippingDetails(context.Background(), staffCaller(), &model.OrderHeader{
		OrderID:        order.OrderID,
		Name:           "Bob Wang",
		PhoneNumber:    "0987654321",
		StreetAddress:  "2 Side St",
		Carrier:        "FedEx",
		TrackingNumber: "FX123",
	})
	require.NoError(t, err)
	require.Equal(t, "FedEx", got.Carrier)
	require.Equal(t, "FX123", got.TrackingNumber)
}
