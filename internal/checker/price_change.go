package checker

import "fmt"

// PriceChange describes one observed price move for a tracked product.
type PriceChange struct {
	Name     string
	Article  string
	OldPrice int
	NewPrice int
}

func (pc PriceChange) Delta() int {
	return pc.NewPrice - pc.OldPrice
}

// Message renders the notification text sent to the user: product name,
// article, old price, new price and the signed delta, one per line,
// prices in whole rubles.
func (pc PriceChange) Message() string {
	return fmt.Sprintf(
		"Price change detected:\n"+
			"Name: %s\n"+
			"Article: %s\n"+
			"Old price: %d ₽\n"+
			"New price: %d ₽\n"+
			"Change: %+d ₽",
		pc.Name, pc.Article, pc.OldPrice, pc.NewPrice, pc.Delta(),
	)
}
