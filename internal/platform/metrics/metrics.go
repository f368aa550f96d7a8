package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the workflow engine.
type Metrics struct {
	TransitionsApplied    *prometheus.CounterVec
	TransitionsDenied     *prometheus.CounterVec
	AccountsVerified      prometheus.Counter
	HarmonizationsStarted prometheus.Counter
	HarmonizationsClosed  *prometheus.CounterVec
	OTPFailures           *prometheus.CounterVec
	IdentityPushes        *prometheus.CounterVec
}

// New creates all metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates all metrics on the given registerer. Tests pass a private
// registry so suites do not collide on duplicate registration.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TransitionsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bankops_account_transitions_total",
			Help: "Account status transitions applied, by target status",
		}, []string{"to"}),
		TransitionsDenied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bankops_account_transitions_denied_total",
			Help: "Account status transitions denied, by error kind",
		}, []string{"kind"}),
		AccountsVerified: factory.NewCounter(prometheus.CounterOpts{
			Name: "bankops_accounts_verified_total",
			Help: "Accounts assigned an account number and customer id",
		}),
		HarmonizationsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "bankops_harmonizations_initiated_total",
			Help: "Harmonization requests created",
		}),
		HarmonizationsClosed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bankops_harmonizations_closed_total",
			Help: "Harmonization requests reaching a terminal state, by outcome",
		}, []string{"outcome"}),
		OTPFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bankops_otp_failures_total",
			Help: "OTP confirmation failures, by kind",
		}, []string{"kind"}),
		IdentityPushes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bankops_identity_pushes_total",
			Help: "External identity verification pushes, by result",
		}, []string{"result"}),
	}
}
