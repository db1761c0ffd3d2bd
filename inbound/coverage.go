package inbound

// computeCoverage checks that every shipment offers a partnered option and
// independently sums the cheapest partnered and non-partnered charge of each
// shipment that offers one. A total is omitted when currencies disagree.
func computeCoverage(shipmentIDs []string, lists map[string][]Option) Coverage {
	cov := Coverage{PartneredAvailable: true}
	var partnered, own moneySum
	for _, id := range shipmentIDs {
		opts := lists[id]
		p, hasP := cheapest(opts, func(o Option) bool { return o.Partnered })
		if !hasP {
			cov.PartneredAvailable = false
			cov.PartneredMissingShipments = append(cov.PartneredMissingShipments, id)
		}
		partnered.add(p, hasP)
		n, hasN := cheapest(opts, func(o Option) bool { return !o.Partnered })
		own.add(n, hasN)
	}
	cov.PartneredTotal = partnered.total()
	cov.NonPartneredTotal = own.total()
	return cov
}

type moneySum struct {
	amount   float64
	currency string
	broken   bool
	seen     bool
}

func (m *moneySum) add(o Option, ok bool) {
	if !ok || o.Charge == nil {
		return
	}
	if m.seen && m.currency != o.Charge.Currency {
		m.broken = true
		return
	}
	m.seen = true
	m.currency = o.Charge.Currency
	m.amount += o.Charge.Amount
}

func (m *moneySum) total() *Money {
	if m.broken || !m.seen {
		return nil
	}
	return &Money{Amount: m.amount, Currency: m.currency}
}
