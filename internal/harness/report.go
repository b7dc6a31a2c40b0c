package harness

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle = lipgloss.NewStyle().Bold(true)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// RenderResult formats one scenario's outcome as a terminal report.
func RenderResult(res *Result) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Scenario: %s", res.Scenario.Name)))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%d messages, window %d, timeout %s, loss %.0f%%/%.0f%%\n",
		len(res.Scenario.Messages), res.Scenario.WindowSize, res.Scenario.Timeout,
		res.Scenario.LossProbability*100, res.Scenario.AckLossProbability*100))

	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		}).
		Headers("Metric", "Value").
		Row("Transmission time", fmt.Sprintf("%.3fs", res.TransmissionTime.Seconds())).
		Row("Packets sent", fmt.Sprintf("%d", res.Sender.PacketsSent)).
		Row("Packets lost", fmt.Sprintf("%d", res.Sender.PacketsLost)).
		Row("Retransmissions", fmt.Sprintf("%d", res.Sender.Retransmissions)).
		Row("Timeouts", fmt.Sprintf("%d", res.Sender.TimeoutsOccurred)).
		Row("Acks received", fmt.Sprintf("%d", res.Sender.AcksReceived)).
		Row("Delivered in order", fmt.Sprintf("%d", res.Receiver.PacketsInOrder)).
		Row("Out of order discards", fmt.Sprintf("%d", res.Receiver.PacketsOutOfOrder)).
		Row("Acks sent / lost", fmt.Sprintf("%d / %d", res.Receiver.AcksSent, res.Receiver.AcksLost)).
		Row("Throughput", fmt.Sprintf("%.2f msg/s", res.Throughput)).
		Row("Goodput", fmt.Sprintf("%.2f ack/s", res.Goodput)).
		Row("Effective loss rate", fmt.Sprintf("%.1f%%", res.EffectiveLossRate*100)).
		Row("Protocol efficiency", fmt.Sprintf("%.1f%%", res.ProtocolEfficiency*100)).
		Row("Retransmissions/message", fmt.Sprintf("%.2fx", res.RetransmissionRate)).
		Row("Acceptance rate", fmt.Sprintf("%.1f%%", res.AcceptanceRate*100))

	b.WriteString(t.String())
	b.WriteString("\n")
	return b.String()
}

// RenderComparison formats several results side by side so the cost of channel
// loss and window sizing is visible at a glance.
func RenderComparison(results []*Result) string {
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Comparative analysis"))
	b.WriteString("\n")

	headers := []string{"Metric"}
	for _, res := range results {
		headers = append(headers, res.Scenario.Name)
	}

	rows := [][]string{
		row("Transmission time", results, func(r *Result) string {
			return fmt.Sprintf("%.3fs", r.TransmissionTime.Seconds())
		}),
		row("Packets sent", results, func(r *Result) string {
			return fmt.Sprintf("%d", r.Sender.PacketsSent)
		}),
		row("Retransmissions", results, func(r *Result) string {
			return fmt.Sprintf("%d", r.Sender.Retransmissions)
		}),
		row("Timeouts", results, func(r *Result) string {
			return fmt.Sprintf("%d", r.Sender.TimeoutsOccurred)
		}),
		row("Throughput", results, func(r *Result) string {
			return fmt.Sprintf("%.2f msg/s", r.Throughput)
		}),
		row("Effective loss rate", results, func(r *Result) string {
			return fmt.Sprintf("%.1f%%", r.EffectiveLossRate*100)
		}),
		row("Protocol efficiency", results, func(r *Result) string {
			return fmt.Sprintf("%.1f%%", r.ProtocolEfficiency*100)
		}),
		row("Retransmissions/message", results, func(r *Result) string {
			return fmt.Sprintf("%.2fx", r.RetransmissionRate)
		}),
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(r, col int) lipgloss.Style {
			if r == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)

	b.WriteString(t.String())
	b.WriteString("\n")
	return b.String()
}

func row(name string, results []*Result, value func(*Result) string) []string {
	cells := []string{name}
	for _, res := range results {
		cells = append(cells, value(res))
	}
	return cells
}
