package main

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"wrapsync/internal/appstate"
	"wrapsync/internal/features/holders"
)

// go run etc/tools/test_chart.go
// in etc/charts/holders_chart.png, drawn from made-up balances
func main() {
	fmt.Println("Generating test chart...")

	decimals := big.NewInt(18)
	symbol, name := "WTKN", "Wrapped Token"
	enabled := true
	unit := new(big.Int).Exp(big.NewInt(10), decimals, nil)

	state := appstate.AppState{
		TokenDecimals:         decimals,
		TokenSymbol:           &symbol,
		TokenName:             &name,
		TokenSupply:           new(big.Int).Mul(big.NewInt(100000), unit),
		TokenTransfersEnabled: &enabled,
	}
	for i := 1; i <= 12; i++ {
		addr := fmt.Sprintf("0x%040x", i*7919)
		balance := new(big.Int).Mul(big.NewInt(int64(13000/i)), unit)
		state.Holders = append(state.Holders, appstate.Holder{Address: addr, Balance: balance})
	}

	chartPath := filepath.Join("etc", "charts", "holders_chart.png")
	if err := holders.RenderChart(appstate.NewView(state), 10, chartPath); err != nil {
		fmt.Printf("Error generating chart: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Chart generated successfully: %s\n", chartPath)
	fmt.Println("Open the file to see the result!")
}
