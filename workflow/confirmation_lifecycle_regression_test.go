package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"bitbucket.org/xxlgroup/orderhub_backend/config"
	"bitbucket.org/xxlgroup/orderhub_backend/models"
	"bitbucket.org/xxlgroup/orderhub_backend/utils"
)

func TestConfirmationLifecycleAgainstMySQL(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	// Wire env for config.Connect* helpers.
	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "orderhub_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	if db == nil {
		t.Fatalf("db is nil after ConnectDatabaseWithRetry")
	}
	if err := models.MigrateTable(); err != nil {
		t.Fatalf("MigrateTable: %v", err)
	}

	// Seed a country, a factory and the two actors.
	country := models.Country{Name: "Germany", Code: "DE"}
	if err := db.WithContext(ctx).Create(&country).Error; err != nil {
		t.Fatalf("seed country: %v", err)
	}
	factory := models.Factory{
		Name: "Nordholz Möbelwerk", CountryId: country.ID,
		Email: "orders@nordholz.example", IsActive: utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&factory).Error; err != nil {
		t.Fatalf("seed factory: %v", err)
	}
	manager := seedTestUser(t, "lifecycleManager", models.UserRoleManager)
	employee := seedTestUser(t, "lifecycleEmployee", models.UserRoleEmployee)

	ctx = utils.SetUserIdInContext(ctx, employee.ID)

	order, err := models.CreateOrder(ctx, &models.NewOrder{
		OrderNumber: "PO-IT-0001",
		FactoryId:   factory.ID,
		TotalAmount: decimal.NewFromInt(5000),
		Currency:    "EUR",
	}, employee.ID)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.Status != models.OrderStatusUploaded {
		t.Fatalf("new order status = %s", order.Status)
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	engine := NewConfirmationEngine(logger)

	// 1) Request send_order; a duplicate request must name the pending winner.
	first, err := engine.Create(ctx, &CreateConfirmationInput{
		OrderId: order.ID, Action: models.ActionSendOrder,
	}, employee.ID)
	if err != nil {
		t.Fatalf("create confirmation: %v", err)
	}
	_, err = engine.Create(ctx, &CreateConfirmationInput{
		OrderId: order.ID, Action: models.ActionSendOrder,
	}, employee.ID)
	var conflictErr *utils.ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("duplicate create: got %v, want *utils.ConflictError", err)
	}
	if conflictErr.PendingConfirmationId != first.ID {
		t.Fatalf("conflict names id %d, pending is %d", conflictErr.PendingConfirmationId, first.ID)
	}

	// 2) Employees cannot decide.
	if _, err := engine.Approve(ctx, first.ID, employee); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("employee approve: got %v, want ErrNotAuthorized", err)
	}

	// 3) Manager approval executes send_order and moves the order.
	approved, err := engine.Approve(ctx, first.ID, manager)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != models.ConfirmationStatusApproved {
		t.Fatalf("approved confirmation status = %s", approved.Status)
	}
	if !approved.Executed() {
		t.Fatalf("approved confirmation not marked executed")
	}
	order, err = models.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if order.Status != models.OrderStatusSent {
		t.Fatalf("order status after send_order = %s, want sent", order.Status)
	}

	// 4) Resolved confirmations are absorbing.
	var stateErr *utils.StateError
	if _, err := engine.Approve(ctx, first.ID, manager); !errors.As(err, &stateErr) {
		t.Fatalf("re-approve executed confirmation: got %v, want *utils.StateError", err)
	}

	// 5) Reject keeps the order where it is and records the reason.
	invoiceReq, err := engine.Create(ctx, &CreateConfirmationInput{
		OrderId: order.ID,
		Action:  models.ActionUploadInvoice,
		Payload: `{"invoice_number":"INV-IT-1","amount":"5000"}`,
	}, employee.ID)
	if err != nil {
		t.Fatalf("create upload_invoice confirmation: %v", err)
	}
	rejected, err := engine.Reject(ctx, invoiceReq.ID, manager, "amount does not match the order")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != models.ConfirmationStatusRejected {
		t.Fatalf("rejected confirmation status = %s", rejected.Status)
	}
	if rejected.Reason != "amount does not match the order" {
		t.Fatalf("rejection reason = %q", rejected.Reason)
	}
	order, _ = models.GetOrder(ctx, order.ID)
	if order.Status != models.OrderStatusSent {
		t.Fatalf("order status after reject = %s, want sent", order.Status)
	}

	// 6) Deciding an overdue confirmation expires it instead.
	overdue := &models.Confirmation{
		OrderId:       order.ID,
		Action:        models.ActionOther,
		RequestedById: employee.ID,
		ExpiresAt:     time.Now().UTC().Add(-time.Hour),
	}
	if err := models.CreateConfirmationRecord(ctx, overdue); err != nil {
		t.Fatalf("create overdue confirmation: %v", err)
	}
	var expiredErr *utils.ExpiredError
	if _, err := engine.Approve(ctx, overdue.ID, manager); !errors.As(err, &expiredErr) {
		t.Fatalf("approve overdue: got %v, want *utils.ExpiredError", err)
	}
	if expiredErr.ConfirmationId != overdue.ID {
		t.Fatalf("expired error names id %d, want %d", expiredErr.ConfirmationId, overdue.ID)
	}
	// The flip must be committed, not just read-time effective: the stored
	// row is expired, its pending_key slot is freed and the requester got
	// the expiry notification.
	var persisted models.Confirmation
	if err := db.WithContext(ctx).First(&persisted, overdue.ID).Error; err != nil {
		t.Fatalf("reload overdue confirmation: %v", err)
	}
	if persisted.Status != models.ConfirmationStatusExpired {
		t.Fatalf("overdue confirmation stored status = %s, want expired", persisted.Status)
	}
	if persisted.PendingKey != nil {
		t.Fatalf("expired confirmation still holds pending_key %q", *persisted.PendingKey)
	}
	var expiryNotices int64
	if err := db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", employee.ID, models.NotificationConfirmationExpired).
		Count(&expiryNotices).Error; err != nil {
		t.Fatalf("count expiry notifications: %v", err)
	}
	if expiryNotices != 1 {
		t.Fatalf("expiry notifications for requester = %d, want 1", expiryNotices)
	}

	// 7) The sweep flips overdue rows nobody touched.
	swept := &models.Confirmation{
		OrderId:       order.ID,
		Action:        models.ActionUploadInvoice,
		RequestedById: employee.ID,
		ExpiresAt:     time.Now().UTC().Add(-time.Minute),
	}
	if err := models.CreateConfirmationRecord(ctx, swept); err != nil {
		t.Fatalf("create sweepable confirmation: %v", err)
	}
	expired, err := SweepExpiredConfirmations(ctx, 100)
	if err != nil {
		t.Fatalf("SweepExpiredConfirmations: %v", err)
	}
	if expired < 1 {
		t.Fatalf("sweep expired %d confirmations, want at least 1", expired)
	}
	sweptAfter, err := models.GetConfirmation(ctx, swept.ID)
	if err != nil {
		t.Fatalf("reload swept confirmation: %v", err)
	}
	if sweptAfter.Status != models.ConfirmationStatusExpired {
		t.Fatalf("swept confirmation status = %s, want expired", sweptAfter.Status)
	}

	// 8) The expiry freed the (order, action) slot; a fresh upload_invoice
	// request approves and executes, recording the invoice.
	retried, err := engine.Create(ctx, &CreateConfirmationInput{
		OrderId: order.ID,
		Action:  models.ActionUploadInvoice,
		Payload: `{"invoice_number":"INV-IT-2","amount":"5000"}`,
	}, employee.ID)
	if err != nil {
		t.Fatalf("create upload_invoice after expiry: %v", err)
	}
	executed, err := engine.Approve(ctx, retried.ID, manager)
	if err != nil {
		t.Fatalf("approve upload_invoice: %v", err)
	}
	if !executed.Executed() {
		t.Fatalf("upload_invoice confirmation not executed")
	}
	order, _ = models.GetOrder(ctx, order.ID)
	if order.Status != models.OrderStatusInvoiceReceived {
		t.Fatalf("order status after upload_invoice = %s, want invoice_received", order.Status)
	}
	var invoice models.Invoice
	if err := db.WithContext(ctx).Where("invoice_number = ?", "INV-IT-2").First(&invoice).Error; err != nil {
		t.Fatalf("invoice not recorded: %v", err)
	}
	if invoice.OrderId != order.ID {
		t.Fatalf("invoice order id = %d, want %d", invoice.OrderId, order.ID)
	}
}

func seedTestUser(t *testing.T, username string, role models.UserRole) *models.User {
	t.Helper()
	hashed, err := utils.HashPassword("integration-pw")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := models.User{
		Username: username,
		Name:     username,
		Password: string(hashed),
		IsActive: utils.NewTrue(),
		Role:     role,
	}
	if err := config.GetDB().Create(&user).Error; err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return &user
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("orderhub-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("orderhub-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=orderhub_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
