package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/pterm/pterm"

	"github.com/luca-patrignani/mental-lottery/chain"
	"github.com/luca-patrignani/mental-lottery/domain/lottery"
	"github.com/luca-patrignani/mental-lottery/runtime"
)

func formatSol(lamports uint64) string {
	return strconv.FormatFloat(float64(lamports)/float64(chain.LamportsPerSol), 'f', -1, 64) + " SOL"
}

func lotteryBox(key chain.Pubkey, state lottery.Lottery, pot uint64) string {
	pbox := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)
	if !state.IsInitialized {
		return pbox.WithTitle(pterm.LightYellow("|LOTTERY|")).WithTitleTopCenter().Sprintf("%s\n%s", key, pterm.LightRed("Not initialized"))
	}

	var b strings.Builder
	b.WriteString(pterm.Sprintfln("Address: %s", pterm.LightCyan(key.String())))
	b.WriteString(pterm.Sprintfln("Manager: %s", state.Manager))
	for i, p := range state.Participants {
		seat := pterm.LightGreen("open")
		if i < int(state.Cursor) {
			seat = p.String()
		}
		b.WriteString(pterm.Sprintfln("Seat %d:  %s", i+1, seat))
	}
	status := pterm.LightYellow(fmt.Sprintf("Waiting for %d more", lottery.MaxParticipants-int(state.Cursor)))
	if state.Ready() {
		status = pterm.LightGreen("Ready to draw")
	}
	b.WriteString(pterm.Sprintf("Pot: %s  %s", formatSol(pot), status))
	return pbox.WithTitle(pterm.LightYellow("|LOTTERY|")).WithTitleTopCenter().Sprint(b.String())
}

func receiptBox(r runtime.Receipt) string {
	pbox := pterm.DefaultBox.WithHorizontalPadding(2)
	status := pterm.LightGreen("committed")
	if r.Err != nil {
		status = pterm.LightRed("failed: " + r.Err.Error())
	}
	var b strings.Builder
	b.WriteString(pterm.Sprintfln("Signature: %s", r.Signature))
	b.WriteString(pterm.Sprintfln("Block: %d  Status: %s", r.Block.Index, status))
	for _, line := range r.Logs {
		b.WriteString(pterm.Sprintfln("  %s", pterm.Gray(line)))
	}
	return pbox.WithTitle("|TRANSACTION|").WithTitleTopLeft().Sprint(strings.TrimRight(b.String(), "\n"))
}

func keygenBox(key chain.Pubkey, mnemonic string, fresh bool) string {
	pbox := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)
	text := pterm.Sprintf("Pubkey: %s", pterm.LightCyan(key.String()))
	if fresh {
		text += pterm.Sprintf("\n\nSave this recovery phrase:\n%s", pterm.LightYellow(mnemonic))
	}
	return pbox.WithTitle("|KEYPAIR|").WithTitleTopCenter().Sprint(text)
}

func accountsTable(rows []accountRow, programID chain.Pubkey) (string, error) {
	data := pterm.TableData{{"Address", "Owner", "Balance", "Data"}}
	for _, r := range rows {
		owner := r.owner.String()
		switch r.owner {
		case chain.SystemProgramID:
			owner = "system"
		case programID:
			owner = "lottery"
		}
		data = append(data, []string{r.key.String(), owner, formatSol(r.lamports), strconv.Itoa(r.dataLen) + " bytes"})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
}

// metricsTable renders every counter and histogram sample count of g.
func metricsTable(g prometheus.Gatherer) (string, error) {
	families, err := g.Gather()
	if err != nil {
		return "", err
	}
	data := pterm.TableData{{"Metric", "Labels", "Value"}}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			data = append(data, []string{mf.GetName(), labelString(m.GetLabel()), metricValue(mf.GetType(), m)})
		}
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
}

func labelString(pairs []*dto.LabelPair) string {
	labels := make([]string, 0, len(pairs))
	for _, p := range pairs {
		labels = append(labels, p.GetName()+"="+p.GetValue())
	}
	sort.Strings(labels)
	return strings.Join(labels, ",")
}

func metricValue(t dto.MetricType, m *dto.Metric) string {
	switch t {
	case dto.MetricType_COUNTER:
		return strconv.FormatFloat(m.GetCounter().GetValue(), 'f', -1, 64)
	case dto.MetricType_HISTOGRAM:
		return fmt.Sprintf("%d samples", m.GetHistogram().GetSampleCount())
	case dto.MetricType_GAUGE:
		return strconv.FormatFloat(m.GetGauge().GetValue(), 'f', -1, 64)
	default:
		return "-"
	}
}
