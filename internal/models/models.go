package models

import (
	"time"

	"gorm.io/gorm"
)

// Model is the base model with common fields for all database entities
type Model struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// Driver model represents a courier account record
type Driver struct {
	Model
	Username  string `json:"username" gorm:"index;Column:username"`
	FullName  string `json:"fullName" gorm:"index;Column:full_name"`
	CourierID string `json:"courierId" gorm:"index;Column:courier_id"`
	Phone     string `json:"phone" gorm:"Column:phone"`
	Hub       string `json:"hub" gorm:"Column:hub"`
	Status    string `json:"status" gorm:"Column:status"`
	Notes     string `json:"notes" gorm:"Column:notes"`
}

// Fleet model represents a vehicle/driver pairing in the fleet roster
type Fleet struct {
	Model
	Name            string `json:"name" gorm:"index;Column:name"`
	PhoneNumber     string `json:"phoneNumber" gorm:"Column:phone_number"`
	Status          string `json:"status" gorm:"index;Column:status"`
	Molis           string `json:"molis" gorm:"Column:molis"`
	DeductionAmount string `json:"deductionAmount" gorm:"Column:deduction_amount"`
	StatusSecond    string `json:"statusSecond" gorm:"Column:status_second"`
	Project         string `json:"project" gorm:"index;Column:project"`
	Distribusi      string `json:"distribusi" gorm:"Column:distribusi"`
	RushHour        string `json:"rushHour" gorm:"Column:rush_hour"`
	VehNumb         string `json:"vehNumb" gorm:"uniqueIndex;Column:veh_numb"`
	Type            string `json:"type" gorm:"index;Column:type"`
	Notes           string `json:"notes" gorm:"Column:notes"`
}

// Seller model represents a marketplace seller record
type Seller struct {
	Model
	Nama         string `json:"nama" gorm:"Column:nama"`
	SellerID     string `json:"sellerId" gorm:"index;Column:seller_id"`
	EmailIseller string `json:"emailIseller" gorm:"index;Column:email_iseller"`
	NoKtp        string `json:"noKtp" gorm:"index;Column:no_ktp"`
	NoTelepon    string `json:"noTelepon" gorm:"index;Column:no_telepon"`
	Alamat       string `json:"alamat" gorm:"Column:alamat"`
	Kota         string `json:"kota" gorm:"Column:kota"`
	Notes        string `json:"notes" gorm:"Column:notes"`
}

// DriverBonus model represents one driver's bonus row for a hub
type DriverBonus struct {
	Model
	Hub          string  `json:"hub" gorm:"uniqueIndex:idx_bonus_hub_driver;Column:hub"`
	DriverName   string  `json:"driverName" gorm:"uniqueIndex:idx_bonus_hub_driver;Column:driver_name"`
	FestiveBonus float64 `json:"festiveBonus" gorm:"Column:festive_bonus"`
	AfterRekon   float64 `json:"afterRekon" gorm:"Column:after_rekon"`
	AddPersonal  float64 `json:"addPersonal" gorm:"Column:add_personal"`
	Incentives   float64 `json:"incentives" gorm:"Column:incentives"`
}

// AssignmentStatus is an enum for merchant order assignment states
type AssignmentStatus string

const (
	// AssignmentUnassigned represents an order with no driver
	AssignmentUnassigned AssignmentStatus = "unassigned"
	// AssignmentAssigned represents an order assigned locally, not yet synced
	AssignmentAssigned AssignmentStatus = "assigned"
	// AssignmentInProgress represents an order registered in an external batch
	AssignmentInProgress AssignmentStatus = "in_progress"
	// AssignmentCompleted represents a delivered order
	AssignmentCompleted AssignmentStatus = "completed"
	// AssignmentCancelled represents a cancelled order
	AssignmentCancelled AssignmentStatus = "cancelled"
)

// PaymentType is an enum for merchant order payment methods
type PaymentType string

const (
	PaymentCOD    PaymentType = "cod"
	PaymentNonCOD PaymentType = "non_cod"
)

// MerchantOrder model represents one shipment row scoped to a project
type MerchantOrder struct {
	Model
	Project               string           `json:"project" gorm:"uniqueIndex:idx_order_project_moid;Column:project"`
	MerchantOrderID       string           `json:"merchant_order_id" gorm:"uniqueIndex:idx_order_project_moid;Column:merchant_order_id"`
	Weight                float64          `json:"weight" gorm:"Column:weight"`
	Width                 float64          `json:"width" gorm:"Column:width"`
	Height                float64          `json:"height" gorm:"Column:height"`
	Length                float64          `json:"length" gorm:"Column:length"`
	PaymentType           PaymentType      `json:"payment_type" gorm:"Column:payment_type;default:'non_cod'"`
	CodAmount             float64          `json:"cod_amount" gorm:"Column:cod_amount"`
	SenderName            string           `json:"sender_name" gorm:"index;Column:sender_name"`
	SenderPhone           string           `json:"sender_phone" gorm:"Column:sender_phone"`
	PickupInstructions    string           `json:"pickup_instructions" gorm:"Column:pickup_instructions"`
	ConsigneeName         string           `json:"consignee_name" gorm:"Column:consignee_name"`
	ConsigneePhone        string           `json:"consignee_phone" gorm:"Column:consignee_phone"`
	DestinationDistrict   string           `json:"destination_district" gorm:"Column:destination_district"`
	DestinationCity       string           `json:"destination_city" gorm:"index;Column:destination_city"`
	DestinationProvince   string           `json:"destination_province" gorm:"Column:destination_province"`
	DestinationPostalcode string           `json:"destination_postalcode" gorm:"Column:destination_postalcode"`
	DestinationAddress    string           `json:"destination_address" gorm:"Column:destination_address"`
	DropoffLat            float64          `json:"dropoff_lat" gorm:"Column:dropoff_lat"`
	DropoffLong           float64          `json:"dropoff_long" gorm:"Column:dropoff_long"`
	DropoffInstructions   string           `json:"dropoff_instructions" gorm:"Column:dropoff_instructions"`
	ItemValue             float64          `json:"item_value" gorm:"Column:item_value"`
	ProductDetails        string           `json:"product_details" gorm:"Column:product_details"`
	AssignedToDriverID    *string          `json:"assigned_to_driver_id" gorm:"index;Column:assigned_to_driver_id"`
	AssignedToDriverName  *string          `json:"assigned_to_driver_name" gorm:"Column:assigned_to_driver_name"`
	AssignedToDriverPhone *string          `json:"assigned_to_driver_phone" gorm:"Column:assigned_to_driver_phone"`
	AssignedAt            *time.Time       `json:"assigned_at" gorm:"Column:assigned_at"`
	AssignmentStatus      AssignmentStatus `json:"assignment_status" gorm:"index;Column:assignment_status;default:'unassigned'"`
	BatchID               *int64           `json:"batch_id" gorm:"index;Column:batch_id"`
}

// SenderValidation model holds the admin-panel registration a sender needs
// before its orders can be assigned to an external batch
type SenderValidation struct {
	Model
	SenderName  string  `json:"sender_name" gorm:"uniqueIndex;Column:sender_name"`
	Business    int64   `json:"business" gorm:"Column:business"`
	City        int64   `json:"city" gorm:"Column:city"`
	ServiceType int64   `json:"service_type" gorm:"Column:service_type"`
	BusinessHub int64   `json:"business_hub" gorm:"Column:business_hub"`
	Longitude   float64 `json:"longitude" gorm:"Column:longitude"`
	Latitude    float64 `json:"latitude" gorm:"Column:latitude"`
}

// DeliveryStatus is an enum for a queued message's delivery state
type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
)

// PhoneMessage model represents a queued outbound message
type PhoneMessage struct {
	Model
	Phone          string         `json:"phone" gorm:"Column:phone"`
	Message        string         `json:"message" gorm:"Column:message"`
	DeliveryStatus DeliveryStatus `json:"deliveryStatus" gorm:"Column:delivery_status;default:'pending'"`
}

// LogStatus is an enum for message attempt outcomes
type LogStatus string

const (
	LogSuccess LogStatus = "success"
	LogFailed  LogStatus = "failed"
)

// Terminal error codes. A phone whose latest log row carries one of these
// is skipped by every subsequent send batch.
const (
	ErrCodeNotRegistered       = "NOT_REGISTERED"
	ErrCodeSessionUnauthorized = "SESSION_UNAUTHORIZED"
)

// MessageLog model represents one delivery attempt outcome. Append-only:
// any row for a normalized phone permanently excludes that phone from
// future send batches.
type MessageLog struct {
	Model
	Phone              string     `json:"phone" gorm:"Column:phone"`
	NormalizedPhone    string     `json:"normalizedPhone" gorm:"index;Column:normalized_phone"`
	Message            string     `json:"message" gorm:"Column:message;type:text"`
	Status             LogStatus  `json:"status" gorm:"index;Column:status"`
	Attempts           int        `json:"attempts" gorm:"Column:attempts"`
	LastAttemptAt      *time.Time `json:"lastAttemptAt" gorm:"Column:last_attempt_at"`
	SuccessAt          *time.Time `json:"successAt" gorm:"Column:success_at"`
	ErrorMessage       string     `json:"errorMessage" gorm:"Column:error_message"`
	ErrorCode          string     `json:"errorCode" gorm:"Column:error_code"`
	WhatsAppRegistered *bool      `json:"whatsappRegistered" gorm:"Column:whatsapp_registered"`
	BatchID            string     `json:"batchId" gorm:"index;Column:batch_id"`
	ProviderMessageID  string     `json:"providerMessageId" gorm:"Column:provider_message_id"`
	DeliveryAckStatus  string     `json:"deliveryAckStatus" gorm:"Column:delivery_ack_status"`
}
