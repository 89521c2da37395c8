package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/indyforge/groupindustry/internal/services"
)

func TestWriteDistributionTable(t *testing.T) {
	result := &services.DistributionResult{
		TotalRevenue:     2000,
		BrokerFee:        60,
		SalesTax:         40,
		NetRevenue:       1900,
		TotalProjectCost: 1000,
		MarginPercent:    0.9,
		Members: []services.MemberDistribution{
			{CharacterName: "Alice", TotalCostsEngaged: 600, SharePercent: 60, ProfitPart: 540, PayoutTotal: 1140},
			{CharacterName: "Bob", TotalCostsEngaged: 400, SharePercent: 40, ProfitPart: 360, PayoutTotal: 760},
		},
	}

	var buf bytes.Buffer
	if err := writeDistributionTable(&buf, "#3 Rifters", result); err != nil {
		t.Fatalf("writeDistributionTable() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{"#3 Rifters", "Net 1900.00", "Margin 90.00%", "PAYOUT", "Alice", "1140.00", "760.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Alice") > strings.Index(out, "Bob") {
		t.Error("members should keep result order")
	}
}

func TestWriteDistributionTable_NoMembers(t *testing.T) {
	var buf bytes.Buffer
	if err := writeDistributionTable(&buf, "#4 Empty", &services.DistributionResult{Members: []services.MemberDistribution{}}); err != nil {
		t.Fatalf("writeDistributionTable() error = %v", err)
	}
	if !strings.Contains(buf.String(), "No approved contributions.") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"distribution", "export-bom", "refresh-prices", "token"} {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}
