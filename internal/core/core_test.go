package core_test

import (
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/robgonnella/pmtud/internal/config"
	"github.com/robgonnella/pmtud/internal/core"
	"github.com/robgonnella/pmtud/internal/discovery"
	"github.com/robgonnella/pmtud/internal/exception"
	mock_config "github.com/robgonnella/pmtud/internal/mock/config"
	mock_discovery "github.com/robgonnella/pmtud/internal/mock/discovery"
	"github.com/robgonnella/pmtud/internal/packet"
	"github.com/stretchr/testify/assert"
)

var selectedSource = netip.MustParseAddr("10.0.0.1")

func staticSource(dst netip.Addr) (netip.Addr, error) {
	return selectedSource, nil
}

func collect(reports *[]*core.Report) func(r *core.Report) {
	return func(r *core.Report) {
		*reports = append(*reports, r)
	}
}

func TestCore(t *testing.T) {
	ctrl := gomock.NewController(t)

	defer ctrl.Finish()

	mockConfig := mock_config.NewMockService(ctrl)
	mockDiscoverer := mock_discovery.NewMockDiscoverer(ctrl)

	conf := config.Default()

	coreService := core.New(
		conf,
		mockConfig,
		mockDiscoverer,
		core.WithSourceSelector(staticSource),
	)

	t.Run("returns config", func(st *testing.T) {
		assert.Equal(st, *conf, coreService.Conf())
	})

	t.Run("updates config", func(st *testing.T) {
		defer coreService.SetConf(*conf)

		newConf := *conf
		newConf.Retries = 7

		mockConfig.EXPECT().Update(&newConf).Return(nil)

		err := coreService.UpdateConfig(newConf)

		assert.NoError(st, err)
		assert.Equal(st, newConf, coreService.Conf())
	})

	t.Run("keeps config when update fails", func(st *testing.T) {
		newConf := *conf
		newConf.Retries = 7

		mockErr := errors.New("mock error")

		mockConfig.EXPECT().Update(&newConf).Return(mockErr)

		err := coreService.UpdateConfig(newConf)

		assert.ErrorIs(st, err, mockErr)
		assert.Equal(st, *conf, coreService.Conf())
	})

	t.Run("rejects invalid active config", func(st *testing.T) {
		newConf := *conf
		newConf.Protocol = "tcp"

		err := coreService.SetConf(newConf)

		assert.ErrorIs(st, err, exception.ErrInvalidParameter)
		assert.Equal(st, *conf, coreService.Conf())
	})

	t.Run("discovers icmp targets sequentially", func(st *testing.T) {
		first := netip.MustParseAddrPort("10.0.0.2:0")
		second := netip.MustParseAddrPort("10.0.0.3:0")

		firstResult := &discovery.Result{Protocol: packet.ICMP, Destination: first, Size: 1500, Found: true}
		secondResult := &discovery.Result{Protocol: packet.ICMP, Destination: second}

		gomock.InOrder(
			mockDiscoverer.EXPECT().Discover(discovery.Request{
				Destination: first,
				Protocol:    packet.ICMP,
				MaxTries:    3,
				Timeout:     time.Second,
				MinSize:     packet.MinSize,
				MaxSize:     packet.MaxSize,
			}).Return(firstResult, nil),
			mockDiscoverer.EXPECT().Discover(discovery.Request{
				Destination: second,
				Protocol:    packet.ICMP,
				MaxTries:    3,
				Timeout:     time.Second,
				MinSize:     packet.MinSize,
				MaxSize:     packet.MaxSize,
			}).Return(secondResult, exception.ErrNoResponse),
		)

		reports := []*core.Report{}

		err := coreService.Discover([]string{"10.0.0.2", "10.0.0.3", "10.0.0.2"}, collect(&reports))

		assert.NoError(st, err)
		assert.Len(st, reports, 2)

		assert.Equal(st, first, reports[0].Target)
		assert.True(st, reports[0].Found())
		assert.Equal(st, 1500, reports[0].Result.Size)

		assert.Equal(st, second, reports[1].Target)
		assert.False(st, reports[1].Found())
		assert.ErrorIs(st, reports[1].Err, exception.ErrNoResponse)
	})

	t.Run("selects udp source address", func(st *testing.T) {
		defer coreService.SetConf(*conf)

		udpConf := *conf
		udpConf.Protocol = "udp"
		udpConf.Timeout = 250
		assert.NoError(st, coreService.SetConf(udpConf))

		dst := netip.MustParseAddrPort("10.0.0.2:9000")
		result := &discovery.Result{Protocol: packet.UDP, Destination: dst, Size: 1500, Found: true}

		mockDiscoverer.EXPECT().Discover(discovery.Request{
			Source:      netip.AddrPortFrom(selectedSource, config.DefaultLocalPort),
			Destination: dst,
			Protocol:    packet.UDP,
			MaxTries:    3,
			Timeout:     250 * time.Millisecond,
			MinSize:     packet.MinSize,
			MaxSize:     packet.MaxSize,
		}).Return(result, nil)

		reports := []*core.Report{}

		err := coreService.Discover([]string{"10.0.0.2:9000"}, collect(&reports))

		assert.NoError(st, err)
		assert.Len(st, reports, 1)
		assert.Equal(st, result, reports[0].Result)
	})

	t.Run("uses configured local address", func(st *testing.T) {
		defer coreService.SetConf(*conf)

		localConf := *conf
		localConf.Local = "192.168.1.10:30000"
		assert.NoError(st, coreService.SetConf(localConf))

		dst := netip.MustParseAddrPort("10.0.0.2:0")

		mockDiscoverer.EXPECT().Discover(gomock.Any()).DoAndReturn(
			func(req discovery.Request) (*discovery.Result, error) {
				assert.Equal(st, netip.MustParseAddrPort("192.168.1.10:30000"), req.Source)
				assert.Equal(st, dst, req.Destination)
				return &discovery.Result{Destination: dst, Size: 1400, Found: true}, nil
			},
		)

		reports := []*core.Report{}

		err := coreService.Discover([]string{"10.0.0.2"}, collect(&reports))

		assert.NoError(st, err)
		assert.Len(st, reports, 1)
	})

	t.Run("aborts remaining targets on socket error", func(st *testing.T) {
		sockErr := exception.NewSocketError("socket", errors.New("operation not permitted"))

		mockDiscoverer.EXPECT().Discover(gomock.Any()).Return(nil, sockErr)

		reports := []*core.Report{}

		err := coreService.Discover([]string{"10.0.0.2", "10.0.0.3"}, collect(&reports))

		assert.ErrorIs(st, err, exception.ErrSocket)
		assert.Len(st, reports, 1)
		assert.False(st, reports[0].Found())
	})

	t.Run("fails before probing on invalid targets", func(st *testing.T) {
		reports := []*core.Report{}

		err := coreService.Discover([]string{"10.0.0.2", "::1"}, collect(&reports))

		assert.ErrorIs(st, err, exception.ErrInvalidParameter)
		assert.Empty(st, reports)
	})
}
