package models

// All returns every model in migration order
func All() []interface{} {
	return []interface{}{
		&Channel{},
		&ChannelPriceTier{},
		&Country{},
		&Subdivision{},
		&Currency{},
		&Tax{},
		&ChannelTax{},
		&Party{},
		&Address{},
		&ContactMechanism{},
		&Category{},
		&Product{},
		&ProductListing{},
		&PriceTier{},
		&Carrier{},
		&ChannelCarrier{},
		&OrderStateMapping{},
		&Sale{},
		&SaleLine{},
		&Shipment{},
		&ShipmentMove{},
		&BOM{},
		&BOMInput{},
		&BOMOutput{},
		&ProductBOM{},
		&ExceptionRecord{},
		&ExportWatermark{},
		&PartyLink{},
		&CategoryLink{},
		&ProductLink{},
		&OrderLink{},
		&Operator{},
	}
}
