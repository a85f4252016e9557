package resultkeeper

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/execore/bootloader/iostate"
	"github.com/execore/bootloader/txtypes"
	"github.com/execore/bootloader/validation"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsKeeper decorates another Keeper with prometheus counters/
// histograms, per SPEC_FULL.md §4.13's result-sink enrichment. Wraps
// rather than replaces: every call is forwarded to the inner Keeper
// after the metric is recorded.
type MetricsKeeper struct {
	Inner Keeper

	txProcessed   *prometheus.CounterVec
	txInvalid     *prometheus.CounterVec
	logsEmitted   prometheus.Counter
	storageDiffs  prometheus.Counter
	pubdataBytes  prometheus.Histogram
	blocksSealed  prometheus.Counter
}

// NewMetricsKeeper registers a fresh set of collectors on reg and returns
// a Keeper wrapping inner.
func NewMetricsKeeper(inner Keeper, reg prometheus.Registerer) *MetricsKeeper {
	m := &MetricsKeeper{
		Inner: inner,
		txProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "execore",
			Subsystem: "bootloader",
			Name:      "tx_processed_total",
			Help:      "Transactions processed, by exit code.",
		}, []string{"exit"}),
		txInvalid: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "execore",
			Subsystem: "bootloader",
			Name:      "tx_invalid_total",
			Help:      "Transactions reported invalid, by validation kind (\"other\" for non-validation errors).",
		}, []string{"kind"}),
		logsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "execore",
			Subsystem: "bootloader",
			Name:      "logs_emitted_total",
		}),
		storageDiffs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "execore",
			Subsystem: "bootloader",
			Name:      "storage_diffs_total",
		}),
		pubdataBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "execore",
			Subsystem: "bootloader",
			Name:      "block_pubdata_bytes",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 10),
		}),
		blocksSealed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "execore",
			Subsystem: "bootloader",
			Name:      "blocks_sealed_total",
		}),
	}
	reg.MustRegister(m.txProcessed, m.txInvalid, m.logsEmitted, m.storageDiffs, m.pubdataBytes, m.blocksSealed)
	return m
}

func (m *MetricsKeeper) TxProcessed(tx *txtypes.Transaction, result TxResult) {
	if result.InvalidErr != nil {
		kind := "other"
		var verr *validation.Error
		if errors.As(result.InvalidErr, &verr) {
			kind = verr.Kind.String()
		}
		m.txInvalid.WithLabelValues(kind).Inc()
	} else {
		m.txProcessed.WithLabelValues(result.Output.Exit.String()).Inc()
	}
	m.Inner.TxProcessed(tx, result)
}

func (m *MetricsKeeper) EmitLog(addr common.Address, topics []common.Hash, data []byte) {
	m.logsEmitted.Inc()
	m.Inner.EmitLog(addr, topics, data)
}

func (m *MetricsKeeper) StorageDiff(d StorageDiff) {
	m.storageDiffs.Inc()
	m.Inner.StorageDiff(d)
}

func (m *MetricsKeeper) NewPreimage(p iostate.NewPreimage) {
	m.Inner.NewPreimage(p)
}

func (m *MetricsKeeper) Pubdata(bytes uint64) {
	m.pubdataBytes.Observe(float64(bytes))
	m.Inner.Pubdata(bytes)
}

func (m *MetricsKeeper) BlockSealed(header BlockHeader) {
	m.blocksSealed.Inc()
	m.Inner.BlockSealed(header)
}

var _ Keeper = (*MetricsKeeper)(nil)
