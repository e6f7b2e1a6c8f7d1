package workflow_test

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

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/models"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"bitbucket.org/mmdatafocus/retail_backend/workflow"
	"github.com/shopspring/decimal"
)

// setupIntegration boots MySQL and Redis in containers, connects, migrates
// and returns a context carrying an admin actor.
func setupIntegration(t *testing.T) context.Context {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "retail_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx := context.Background()

	username := fmt.Sprintf("admin-%d", time.Now().UnixNano())
	user, err := models.CreateUser(ctx, &models.NewUser{
		Username: username,
		Name:     "Test Admin",
		Password: "testpw123",
		Role:     models.UserRoleAdmin,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	ctx = utils.SetUsernameInContext(ctx, user.Username)
	ctx = utils.SetUserIdInContext(ctx, user.ID)
	ctx = utils.SetUserNameInContext(ctx, user.Name)
	ctx = utils.SetIsAdminInContext(ctx, true)
	return ctx
}

func mustStore(t *testing.T, ctx context.Context) *models.Store {
	t.Helper()
	store, err := models.CreateStore(ctx, &models.NewStore{
		Name: fmt.Sprintf("Store %d", time.Now().UnixNano()),
	})
	if err != nil {
		t.Fatalf("CreateStore: %v", err)
	}
	return store
}

func mustProduct(t *testing.T, ctx context.Context, quantity int, price, cost string) *models.Product {
	t.Helper()
	product, err := models.CreateProduct(ctx, &models.NewProduct{
		Name:      fmt.Sprintf("Product %d", time.Now().UnixNano()),
		Quantity:  quantity,
		Price:     mustDec(t, price),
		CostPrice: mustDec(t, cost),
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	return product
}

func mustDec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}

func productQuantity(t *testing.T, ctx context.Context, id int) int {
	t.Helper()
	product, err := models.GetProduct(ctx, id)
	if err != nil {
		t.Fatalf("GetProduct(%d): %v", id, err)
	}
	return product.Quantity
}

func TestSaleLifecycleRoundTrip(t *testing.T) {
	ctx := setupIntegration(t)
	store := mustStore(t, ctx)
	product := mustProduct(t, ctx, 10, "5", "3")

	sale, err := workflow.CreateSale(ctx, &models.NewSale{
		StoreId:       store.ID,
		PaymentMethod: models.PaymentMethodCash,
		Items: []models.NewSaleItem{
			{ProductId: product.ID, Quantity: 4},
		},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	if got := productQuantity(t, ctx, product.ID); got != 6 {
		t.Fatalf("stock after sale = %d, want 6", got)
	}
	if !sale.Subtotal.Equal(mustDec(t, "20")) {
		t.Fatalf("subtotal = %s, want 20", sale.Subtotal)
	}
	if !sale.TotalAmount.Equal(mustDec(t, "20")) {
		t.Fatalf("total = %s, want 20", sale.TotalAmount)
	}
	if sale.Status != models.SaleStatusCompleted || sale.PaymentStatus != models.PaymentStatusPaid {
		t.Fatalf("unexpected status %s/%s", sale.Status, sale.PaymentStatus)
	}
	wantPrefix := fmt.Sprintf("SL-%d-", store.ID)
	if !strings.HasPrefix(sale.SaleNumber, wantPrefix) {
		t.Fatalf("sale number %q missing prefix %q", sale.SaleNumber, wantPrefix)
	}
	if len(sale.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(sale.Items))
	}
	item := sale.Items[0]
	if !item.UnitPrice.Equal(mustDec(t, "5")) || !item.CostPrice.Equal(mustDec(t, "3")) {
		t.Fatalf("snapshot prices %s/%s, want 5/3", item.UnitPrice, item.CostPrice)
	}
	if !item.Profit.Equal(mustDec(t, "8")) {
		t.Fatalf("profit = %s, want 8", item.Profit)
	}

	// snapshot immutability: a later product price change never rewrites history
	if _, err := models.UpdateProduct(ctx, product.ID, &models.NewProduct{
		Name:      product.Name,
		Price:     mustDec(t, "99"),
		CostPrice: mustDec(t, "50"),
	}); err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	reread, err := models.GetSale(ctx, sale.ID)
	if err != nil {
		t.Fatalf("GetSale: %v", err)
	}
	if !reread.Items[0].UnitPrice.Equal(mustDec(t, "5")) {
		t.Fatalf("snapshot changed after product update: %s", reread.Items[0].UnitPrice)
	}

	// shrinking the quantity releases the difference
	newItems := []models.NewSaleItem{{ProductId: product.ID, Quantity: 2}}
	updated, err := workflow.UpdateSale(ctx, sale.ID, &models.SalePatch{Items: &newItems})
	if err != nil {
		t.Fatalf("UpdateSale: %v", err)
	}
	if got := productQuantity(t, ctx, product.ID); got != 8 {
		t.Fatalf("stock after shrink = %d, want 8", got)
	}
	// the new snapshot reflects the product's current price
	if !updated.Items[0].UnitPrice.Equal(mustDec(t, "99")) {
		t.Fatalf("updated snapshot unit price = %s, want 99", updated.Items[0].UnitPrice)
	}
	if !updated.Subtotal.Equal(mustDec(t, "198")) {
		t.Fatalf("recomputed subtotal = %s, want 198", updated.Subtotal)
	}
	if updated.SaleNumber != sale.SaleNumber {
		t.Fatalf("sale number changed on update: %s -> %s", sale.SaleNumber, updated.SaleNumber)
	}

	refunded, err := workflow.RefundSale(ctx, sale.ID)
	if err != nil {
		t.Fatalf("RefundSale: %v", err)
	}
	if refunded.Status != models.SaleStatusRefunded || refunded.PaymentStatus != models.PaymentStatusRefunded {
		t.Fatalf("refund status %s/%s", refunded.Status, refunded.PaymentStatus)
	}
	if got := productQuantity(t, ctx, product.ID); got != 10 {
		t.Fatalf("stock after refund = %d, want 10", got)
	}

	// refunds are not idempotent; the second attempt must not touch stock
	if _, err := workflow.RefundSale(ctx, sale.ID); !errors.Is(err, workflow.ErrSaleAlreadyRefunded) {
		t.Fatalf("second refund err = %v, want ErrSaleAlreadyRefunded", err)
	}
	if got := productQuantity(t, ctx, product.ID); got != 10 {
		t.Fatalf("stock after double refund = %d, want 10", got)
	}
}

func TestCreateSaleAllOrNothing(t *testing.T) {
	ctx := setupIntegration(t)
	store := mustStore(t, ctx)
	plentiful := mustProduct(t, ctx, 5, "5", "3")
	scarce := mustProduct(t, ctx, 1, "7", "4")

	_, err := workflow.CreateSale(ctx, &models.NewSale{
		StoreId:       store.ID,
		PaymentMethod: models.PaymentMethodCard,
		Items: []models.NewSaleItem{
			{ProductId: plentiful.ID, Quantity: 2},
			{ProductId: scarce.ID, Quantity: 3},
		},
	})
	var insufficient *workflow.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("err = %v, want InsufficientStockError", err)
	}
	if insufficient.ProductId != scarce.ID || insufficient.Available != 1 || insufficient.Requested != 3 {
		t.Fatalf("unexpected error detail: %+v", insufficient)
	}

	// the first line's decrement must have been rolled back with the rest
	if got := productQuantity(t, ctx, plentiful.ID); got != 5 {
		t.Fatalf("stock of first product = %d, want 5", got)
	}
	if got := productQuantity(t, ctx, scarce.ID); got != 1 {
		t.Fatalf("stock of second product = %d, want 1", got)
	}
}

func TestCreateSaleZeroStock(t *testing.T) {
	ctx := setupIntegration(t)
	store := mustStore(t, ctx)
	product := mustProduct(t, ctx, 0, "5", "3")

	_, err := workflow.CreateSale(ctx, &models.NewSale{
		StoreId:       store.ID,
		PaymentMethod: models.PaymentMethodCash,
		Items:         []models.NewSaleItem{{ProductId: product.ID, Quantity: 1}},
	})
	var insufficient *workflow.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("err = %v, want InsufficientStockError", err)
	}
	if insufficient.Available != 0 {
		t.Fatalf("available = %d, want 0", insufficient.Available)
	}
}

func TestDeleteSaleRestoresStock(t *testing.T) {
	ctx := setupIntegration(t)
	store := mustStore(t, ctx)
	product := mustProduct(t, ctx, 10, "5", "3")

	sale, err := workflow.CreateSale(ctx, &models.NewSale{
		StoreId:       store.ID,
		PaymentMethod: models.PaymentMethodUpi,
		Items:         []models.NewSaleItem{{ProductId: product.ID, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if got := productQuantity(t, ctx, product.ID); got != 7 {
		t.Fatalf("stock after sale = %d, want 7", got)
	}

	if _, err := workflow.DeleteSale(ctx, sale.ID); err != nil {
		t.Fatalf("DeleteSale: %v", err)
	}
	if got := productQuantity(t, ctx, product.ID); got != 10 {
		t.Fatalf("stock after delete = %d, want 10", got)
	}
	if _, err := models.GetSale(ctx, sale.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("deleted sale still readable: %v", err)
	}
}

func TestPostingLockFreeAfterCommit(t *testing.T) {
	ctx := setupIntegration(t)
	store := mustStore(t, ctx)
	product := mustProduct(t, ctx, 10, "5", "3")

	if _, err := workflow.CreateSale(ctx, &models.NewSale{
		StoreId:       store.ID,
		PaymentMethod: models.PaymentMethodCash,
		Items:         []models.NewSaleItem{{ProductId: product.ID, Quantity: 1}},
	}); err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	// advisory locks are connection-scoped and survive COMMIT; a lock still
	// held here would block every later workflow for this store once the
	// pool hands its connection to someone else
	var free int
	lockName := fmt.Sprintf("sale_posting:%d", store.ID)
	if err := config.GetDB().Raw("SELECT IS_FREE_LOCK(?)", lockName).Scan(&free).Error; err != nil {
		t.Fatalf("IS_FREE_LOCK: %v", err)
	}
	if free != 1 {
		t.Fatalf("posting lock %q still held after a committed sale", lockName)
	}
}

func TestConcurrentCreatesDoNotOversell(t *testing.T) {
	ctx := setupIntegration(t)
	store := mustStore(t, ctx)
	product := mustProduct(t, ctx, 1, "5", "3")

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := workflow.CreateSale(ctx, &models.NewSale{
				StoreId:       store.ID,
				PaymentMethod: models.PaymentMethodCash,
				Items:         []models.NewSaleItem{{ProductId: product.ID, Quantity: 1}},
			})
			errs <- err
		}()
	}

	var successes, rejections int
	for i := 0; i < 2; i++ {
		err := <-errs
		if err == nil {
			successes++
			continue
		}
		var insufficient *workflow.InsufficientStockError
		if !errors.As(err, &insufficient) {
			t.Fatalf("loser err = %v, want InsufficientStockError", err)
		}
		rejections++
	}
	if successes != 1 || rejections != 1 {
		t.Fatalf("successes=%d rejections=%d, want exactly one of each", successes, rejections)
	}
	if got := productQuantity(t, ctx, product.ID); got != 0 {
		t.Fatalf("stock = %d, want 0", got)
	}
}

func TestDeleteAfterRefundDoesNotRestoreTwice(t *testing.T) {
	ctx := setupIntegration(t)
	store := mustStore(t, ctx)
	product := mustProduct(t, ctx, 10, "5", "3")

	sale, err := workflow.CreateSale(ctx, &models.NewSale{
		StoreId:       store.ID,
		PaymentMethod: models.PaymentMethodCash,
		Items:         []models.NewSaleItem{{ProductId: product.ID, Quantity: 4}},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	if _, err := workflow.RefundSale(ctx, sale.ID); err != nil {
		t.Fatalf("RefundSale: %v", err)
	}
	if got := productQuantity(t, ctx, product.ID); got != 10 {
		t.Fatalf("stock after refund = %d, want 10", got)
	}

	// swapping items on a refunded sale would release the reservation again
	newItems := []models.NewSaleItem{{ProductId: product.ID, Quantity: 1}}
	if _, err := workflow.UpdateSale(ctx, sale.ID, &models.SalePatch{Items: &newItems}); !errors.Is(err, workflow.ErrSaleAlreadyRefunded) {
		t.Fatalf("item update on refunded sale err = %v, want ErrSaleAlreadyRefunded", err)
	}

	// the refund already returned the stock; delete must only remove the record
	if _, err := workflow.DeleteSale(ctx, sale.ID); err != nil {
		t.Fatalf("DeleteSale: %v", err)
	}
	if got := productQuantity(t, ctx, product.ID); got != 10 {
		t.Fatalf("stock after delete of refunded sale = %d, want 10", got)
	}
}

func TestConcurrentRefundAndDeleteRestoreOnce(t *testing.T) {
	ctx := setupIntegration(t)
	store := mustStore(t, ctx)
	product := mustProduct(t, ctx, 10, "5", "3")

	sale, err := workflow.CreateSale(ctx, &models.NewSale{
		StoreId:       store.ID,
		PaymentMethod: models.PaymentMethodCard,
		Items:         []models.NewSaleItem{{ProductId: product.ID, Quantity: 4}},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	// every interleaving must restore the 4 units exactly once: either the
	// refund lands first and the delete skips the restore, or the delete
	// lands first and the refund reports not-found
	errs := make(chan error, 2)
	go func() {
		_, err := workflow.RefundSale(ctx, sale.ID)
		errs <- err
	}()
	go func() {
		_, err := workflow.DeleteSale(ctx, sale.ID)
		errs <- err
	}()
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil && !errors.Is(err, utils.ErrorRecordNotFound) {
			t.Fatalf("unexpected workflow error: %v", err)
		}
	}

	if got := productQuantity(t, ctx, product.ID); got != 10 {
		t.Fatalf("stock after refund/delete race = %d, want 10", got)
	}
	if _, err := models.GetSale(ctx, sale.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("sale should be deleted, got err = %v", err)
	}
}

func TestSaleNumbersMonotonicPerStore(t *testing.T) {
	ctx := setupIntegration(t)
	store := mustStore(t, ctx)
	product := mustProduct(t, ctx, 100, "5", "3")

	var previous int64
	for i := 0; i < 3; i++ {
		sale, err := workflow.CreateSale(ctx, &models.NewSale{
			StoreId:       store.ID,
			PaymentMethod: models.PaymentMethodCash,
			Items:         []models.NewSaleItem{{ProductId: product.ID, Quantity: 1}},
		})
		if err != nil {
			t.Fatalf("CreateSale #%d: %v", i, err)
		}
		if sale.SequenceNo <= previous {
			t.Fatalf("sequence not monotonic: %d after %d", sale.SequenceNo, previous)
		}
		previous = sale.SequenceNo
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("retail-test-redis-%d", time.Now().UnixNano())
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
	name := fmt.Sprintf("retail-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=retail_test",
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
