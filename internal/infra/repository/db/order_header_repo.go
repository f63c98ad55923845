package db

import (
	"github.com/RoyceAzure/lab/bookstore/internal/domain/model"
	"gorm.io/gorm"
)

// OrderHeaderRepository 在泛型repo之上補訂單專用的寫入操作
type OrderHeaderRepository struct {
	*Repository[model.OrderHeader]
}

func newOrderHeaderRepository(uow *UnitOfWork) *OrderHeaderRepository {
	return &OrderHeaderRepository{Repository: newRepository[model.OrderHeader](uow)}
}

// UpdateVersioned 暫存帶版本檢查的整列更新
// 以讀取到的 Version 當條件，更新不到任何列代表被並發修改，整筆交易回滾並回傳 ErrConflict
// 記憶體中的版本號在交易提交成功後才遞增
func (r *OrderHeaderRepository) UpdateVersioned(header *model.OrderHeader) {
	prev := header.Version
	r.uow.stage(func(tx *gorm.DB) error {
		// 使用 map 指定更新欄位，零值欄位也要覆寫
		res := tx.Model(&model.OrderHeader{}).
			Where("order_id = ? AND version = ?", header.OrderID, prev).
			Updates(map[string]interface{}{
				"order_date":        header.OrderDate,
				"shipping_date":     header.ShippingDate,
				"order_total":       header.OrderTotal,
				"order_status":      header.OrderStatus,
				"payment_status":    header.PaymentStatus,
				"tracking_number":   header.TrackingNumber,
				"carrier":           header.Carrier,
				"payment_date":      header.PaymentDate,
				"payment_due_date":  header.PaymentDueDate,
				"session_id":        header.SessionID,
				"payment_intent_id": header.PaymentIntentID,
				"name":              header.Name,
				"phone_number":      header.PhoneNumber,
				"street_address":    header.StreetAddress,
				"city":              header.City,
				"state":             header.State,
				"postal_code":       header.PostalCode,
				"version":           prev + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		return nil
	})
	r.uow.afterSave(func() {
		header.Version = prev + 1
	})
}

// Remove 暫存刪除訂單，明細跟主檔同一批暫存，不會留下孤兒明細
func (r *OrderHeaderRepository) Remove(header *model.OrderHeader) {
	r.uow.stage(func(tx *gorm.DB) error {
		if err := softDelete(tx.Model(&model.OrderDetail{}).Where("order_header_id = ?", header.OrderID)); err != nil {
			return err
		}
		return softDelete(tx.Model(header))
	})
}

// UpdatePaymentToken 暫存金流關聯代號更新，結帳發起收款後寫回
func (r *OrderHeaderRepository) UpdatePaymentToken(orderID uint, sessionID, paymentIntentID string) {
	r.uow.stage(func(tx *gorm.DB) error {
		return tx.Model(&model.OrderHeader{}).
			Where("order_id = ?", orderID).
			Updates(map[string]interface{}{
				"session_id":        sessionID,
				"payment_intent_id": paymentIntentID,
			}).Error
	})
}
