package protocol_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/keyence-sim/ilsim/internal/ampl"
	"github.com/keyence-sim/ilsim/internal/bus"
	"github.com/keyence-sim/ilsim/internal/protocol"
)

func freshEngine(t *testing.T, sensorCount int) *protocol.Engine {
	t.Helper()
	b := bus.New()
	for i := 0; i < sensorCount; i++ {
		a := ampl.New(ampl.IL030)
		a.SetRaw(0, true)
		if err := b.Add(a); err != nil {
			t.Fatalf("add sensor %d: %v", i, err)
		}
	}
	return protocol.New(b)
}

func TestEndToEndScenarios(t *testing.T) {
	cases := []struct {
		name    string
		sensors int
		lines   []string
		want    []string
	}{
		{"M0 zeroed amplifier", 1, []string{"M0"}, []string{"M0,+000000000"}},
		{"SR read PV", 1, []string{"SR,01,037"}, []string{"SR,01,037,+000000000"}},
		{"FR decimal position", 1, []string{"FR,01,037"}, []string{"FR,01,037,+000000003"}},
		{"SW then SR round trip", 1,
			[]string{"SW,01,136,+000000002", "SR,01,136"},
			[]string{"SW,01,136", "SR,01,136,+000000002"}},
		{"SW out of range", 1, []string{"SW,01,136,+000000009"}, []string{"ER,SW,009"}},
		{"SR register past MaxRegister", 1, []string{"SR,01,500"}, []string{"ER,SR,020"}},
		{"malformed command", 1, []string{"GARBAGE"}, []string{"ER,GA,255"}},
		{"bus sensor count", 3, []string{"SR,00,077"}, []string{"SR,00,077,+000000003"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := freshEngine(t, tc.sensors)
			got := make([]string, len(tc.lines))
			for i, line := range tc.lines {
				got[i] = e.Handle(line)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("replies mismatch for %v (-want +got):\n%s", tc.lines, diff)
			}
		})
	}
}

func TestGarbledCommandEchoesRawPrefix(t *testing.T) {
	e := freshEngine(t, 1)
	got := e.Handle("xy,bogus")
	want := "ER,xy,255"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBusGeneralErrorTakesPriorityOverRegisterErrors(t *testing.T) {
	b := bus.New()
	a := ampl.New(ampl.IL030)
	if err := b.Add(a); err != nil {
		t.Fatal(err)
	}
	b.SetError(bus.ErrorCode(51))
	e := protocol.New(b)
	got := e.Handle("SR,01,037")
	want := "ER,SR,254"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestMalformedLineReportsFormatErrorEvenWithBusError(t *testing.T) {
	b := bus.New()
	b.SetError(bus.ErrorCode(51))
	e := protocol.New(b)
	got := e.Handle("nonsense")
	want := "ER,no,255"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFRRejectsCommunicationUnitID(t *testing.T) {
	e := freshEngine(t, 1)
	got := e.Handle("FR,00,037")
	want := "ER,FR,022"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
