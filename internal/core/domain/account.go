package domain

// ShippingAddress is an immutable value copied into an order at creation.
type ShippingAddress struct {
	Recipient  string
	Line1      string
	Line2      string
	City       string
	PostalCode string
	Country    string
}

type Account struct {
	ID string
	// ShippingAddress is nil when the account has not registered one.
	// Creating new orders requires it; appending to an existing pending
	// order does not, since that order already carries its own snapshot.
	ShippingAddress *ShippingAddress
}
