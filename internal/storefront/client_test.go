package storefront

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xelth-com/magebridge/internal/config"
	"github.com/xelth-com/magebridge/internal/models"
)

const orderResponse = `<?xml version="1.0"?>
<methodResponse><params><param><value><struct>
<member><name>increment_id</name><value><string>100000001</string></value></member>
<member><name>order_id</name><value><string>7</string></value></member>
</struct></value></param></params></methodResponse>`

const sessionResponse = `<?xml version="1.0"?>
<methodResponse><params><param><value><string>sess-1</string></value></param></params></methodResponse>`

const trueResponse = `<?xml version="1.0"?>
<methodResponse><params><param><value><boolean>1</boolean></value></param></params></methodResponse>`

func faultResponse(code, msg string) string {
	return `<?xml version="1.0"?>
<methodResponse><fault><value><struct>
<member><name>faultCode</name><value><int>` + code + `</int></value></member>
<member><name>faultString</name><value><string>` + msg + `</string></value></member>
</struct></value></fault></methodResponse>`
}

var methodName = regexp.MustCompile(`<methodName>([^<]+)</methodName>`)

// fakeServer answers XML-RPC requests with canned bodies keyed by method or resource
type fakeServer struct {
	mu      sync.Mutex
	logins  int
	replies map[string][]string
	bodies  []string
}

func (s *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	body := string(raw)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies = append(s.bodies, body)

	key := methodName.FindStringSubmatch(body)[1]
	if key == "login" {
		s.logins++
	}
	if key == "call" {
		for resource := range s.replies {
			if strings.Contains(body, "<string>"+resource+"</string>") {
				key = resource
				break
			}
		}
	}

	queue := s.replies[key]
	if len(queue) == 0 {
		_, _ = io.WriteString(w, faultResponse("1", "unexpected call "+key))
		return
	}
	reply := queue[0]
	if len(queue) > 1 {
		s.replies[key] = queue[1:]
	}
	w.Header().Set("Content-Type", "text/xml")
	_, _ = io.WriteString(w, reply)
}

func newTestClient(t *testing.T, replies map[string][]string) (*Client, *fakeServer) {
	t.Helper()
	srv := &fakeServer{replies: replies}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	ch := &models.Channel{ID: 1, URL: ts.URL + "/api/xmlrpc", APIUser: "u", APIKey: "k"}
	c, err := NewClient(ch, config.StorefrontConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return c, srv
}

func TestEndpointFor(t *testing.T) {
	assert.Equal(t, "http://shop.test/index.php/api/xmlrpc", endpointFor("http://shop.test/"))
	assert.Equal(t, "http://shop.test/api/xmlrpc", endpointFor("http://shop.test/api/xmlrpc"))
}

func TestNewClientRequiresSettings(t *testing.T) {
	_, err := NewClient(&models.Channel{URL: "http://shop.test"}, config.StorefrontConfig{}, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, models.ErrIncompleteChannel)
}

func TestClientOrderInfo(t *testing.T) {
	c, srv := newTestClient(t, map[string][]string{
		"login":            {sessionResponse},
		"sales_order.info": {orderResponse},
	})

	rec, err := c.OrderInfo(context.Background(), "100000001")
	require.NoError(t, err)
	assert.Equal(t, "100000001", rec["increment_id"])

	_, err = c.OrderInfo(context.Background(), "100000001")
	require.NoError(t, err)
	assert.Equal(t, 1, srv.logins, "session is reused")
}

func TestClientFaults(t *testing.T) {
	c, _ := newTestClient(t, map[string][]string{
		"login":                       {sessionResponse},
		"catalog_product.info":        {faultResponse("101", "Product not exists.")},
		"sales_order_shipment.create": {faultResponse("102", "Cannot do shipment for order.")},
	})

	_, err := c.ProductInfo(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, IsFault(err, FaultNotFound))

	var f *Fault
	require.True(t, errors.As(err, &f))
	assert.Equal(t, "Product not exists.", f.Message)

	_, err = c.CreateShipment(context.Background(), "100000001", map[string]decimal.Decimal{"5": decimal.NewFromInt(1)})
	assert.True(t, IsFault(err, FaultAlreadyExists))
	assert.False(t, IsFault(err, FaultNotFound))
}

func TestClientRelogsOnExpiredSession(t *testing.T) {
	c, srv := newTestClient(t, map[string][]string{
		"login":              {sessionResponse},
		"sales_order.cancel": {faultResponse("5", "Session expired. Try to relogin."), trueResponse},
	})

	require.NoError(t, c.CancelOrder(context.Background(), "100000001"))
	assert.Equal(t, 2, srv.logins)
}

func TestClientPingReportsConnectionError(t *testing.T) {
	c, _ := newTestClient(t, map[string][]string{
		"login": {faultResponse("2", "Access denied.")},
	})

	err := c.Ping(context.Background())
	assert.ErrorIs(t, err, ErrConnection)
}

func TestClientHonoursCancelledContext(t *testing.T) {
	c, srv := newTestClient(t, map[string][]string{"login": {sessionResponse}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.OrderInfo(ctx, "1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, srv.bodies)
}
