package enum

// ── State machines (enum constrained in DB) ──

const (
	OrderStatusPendiente  = "PENDIENTE"
	OrderStatusConfirmado = "CONFIRMADO"
	OrderStatusListo      = "LISTO"
	OrderStatusPagado     = "PAGADO"
	OrderStatusCancelado  = "CANCELADO"
)

const (
	ItemStatusPendiente = "PENDIENTE"
	ItemStatusListo     = "LISTO"
)

const (
	TableStatusLibre     = "libre"
	TableStatusOcupada   = "ocupada"
	TableStatusReservada = "reservada"
)

const (
	ReservationStatusPending   = "pending"
	ReservationStatusConfirmed = "confirmed"
	ReservationStatusCancelled = "cancelled"
)

// ── Roles ──

const (
	RoleAdmin    = "admin"
	RoleMesero   = "mesero"
	RoleCocinero = "cocinero"
	RoleCajero   = "cajero"
	RoleCliente  = "cliente"
)

// ── Configurable labels (no DB constraint) ──

const (
	OrderTypeMesa     = "Mesa"
	OrderTypeDelivery = "Delivery"
	OrderTypeRecoger  = "Recoger"
)

const (
	CategoryPlatos   = "platos"
	CategoryBebidas  = "bebidas"
	CategoryEntradas = "entradas"
	CategoryPostres  = "postres"
)

const (
	PaymentMethodEfectivo = "efectivo"
	PaymentMethodYape     = "yape"
	PaymentMethodPlin     = "plin"
	PaymentMethodTarjeta  = "tarjeta"
)
