package matching

// TradingStatus is the admission state of a book
type TradingStatus string

const (
	TradingStatusOpenForTrading         TradingStatus = "OPEN_FOR_TRADING"
	TradingStatusHalted                 TradingStatus = "HALTED"
	TradingStatusNotAvailableForTrading TradingStatus = "NOT_AVAILABLE_FOR_TRADING"
	TradingStatusPreOpen                TradingStatus = "PRE_OPEN"
	TradingStatusSystemMaintenance      TradingStatus = "SYSTEM_MAINTENANCE"
)

// CommandKind is a gated command category
type CommandKind string

const (
	CommandKindPlaceOrder      CommandKind = "PLACE_ORDER"
	CommandKindCancelOrder     CommandKind = "CANCEL_ORDER"
	CommandKindPlaceMassQuote  CommandKind = "PLACE_MASS_QUOTE"
	CommandKindCancelMassQuote CommandKind = "CANCEL_MASS_QUOTE"
)

type admission struct {
	placeOrder      bool
	cancelOrder     bool
	placeMassQuote  bool
	cancelMassQuote bool
}

var admissions = map[TradingStatus]admission{
	TradingStatusOpenForTrading:         {placeOrder: true, cancelOrder: true, placeMassQuote: true, cancelMassQuote: true},
	TradingStatusHalted:                 {placeOrder: false, cancelOrder: true, placeMassQuote: false, cancelMassQuote: true},
	TradingStatusNotAvailableForTrading: {placeOrder: false, cancelOrder: true, placeMassQuote: false, cancelMassQuote: true},
	TradingStatusPreOpen:                {placeOrder: false, cancelOrder: true, placeMassQuote: true, cancelMassQuote: true},
	TradingStatusSystemMaintenance:      {placeOrder: false, cancelOrder: false, placeMassQuote: false, cancelMassQuote: false},
}

func (s TradingStatus) IsValid() bool {
	_, ok := admissions[s]
	return ok
}

// Allows reports whether commands of the given kind are admitted under s.
// Unknown statuses and kinds are denied.
func (s TradingStatus) Allows(kind CommandKind) bool {
	a, ok := admissions[s]
	if !ok {
		return false
	}
	switch kind {
	case CommandKindPlaceOrder:
		return a.placeOrder
	case CommandKindCancelOrder:
		return a.cancelOrder
	case CommandKindPlaceMassQuote:
		return a.placeMassQuote
	case CommandKindCancelMassQuote:
		return a.cancelMassQuote
	default:
		return false
	}
}

// TradingStatuses holds the status layers of a book. An empty layer is absent;
// Default is mandatory.
type TradingStatuses struct {
	Default    TradingStatus `json:"default"`
	Scheduled  TradingStatus `json:"scheduled,omitempty"`
	FastMarket TradingStatus `json:"fast_market,omitempty"`
	Manual     TradingStatus `json:"manual,omitempty"`
}

// EffectiveStatus resolves manual over fast market over scheduled over default
func (t TradingStatuses) EffectiveStatus() TradingStatus {
	for _, s := range []TradingStatus{t.Manual, t.FastMarket, t.Scheduled} {
		if s != "" {
			return s
		}
	}
	return t.Default
}

// Validate checks that the default is present and every layer is known
func (t TradingStatuses) Validate() error {
	if t.Default == "" {
		return invalid("trading_statuses.default", "required")
	}
	layers := []struct {
		name   string
		status TradingStatus
	}{
		{"trading_statuses.default", t.Default},
		{"trading_statuses.scheduled", t.Scheduled},
		{"trading_statuses.fast_market", t.FastMarket},
		{"trading_statuses.manual", t.Manual},
	}
	for _, l := range layers {
		if l.status != "" && !l.status.IsValid() {
			return invalid(l.name, "unknown status "+string(l.status))
		}
	}
	return nil
}

func (t TradingStatuses) gate(kind CommandKind) error {
	status := t.EffectiveStatus()
	if !status.Allows(kind) {
		return &TradingNotAllowedError{Status: status, Kind: kind}
	}
	return nil
}
