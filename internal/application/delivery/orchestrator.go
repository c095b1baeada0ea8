package delivery

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Entregas-api/internal/application/dto"
	"github.com/jhoicas/Entregas-api/internal/application/ports"
	"github.com/jhoicas/Entregas-api/internal/application/stock"
	"github.com/jhoicas/Entregas-api/internal/domain"
	domaindelivery "github.com/jhoicas/Entregas-api/internal/domain/delivery"
	"github.com/jhoicas/Entregas-api/internal/domain/entity"
	"github.com/jhoicas/Entregas-api/internal/domain/repository"
	"github.com/jhoicas/Entregas-api/pkg/logger"
)

// Nombres de operación para telemetría.
const (
	OpCreate     = "delivery.create"
	OpUpdate     = "delivery.update"
	OpDelete     = "delivery.delete"
	OpTransition = "delivery.transition"
)

// Claves de texto generadas por el orquestador.
const (
	KeyStockReference  = "stock-reference-delivery"
	KeyNoticeUntracked = "delivery-notice-untracked-product"
)

// Orchestrator coordina entregas y stock: las líneas y el stock se confirman juntos o nada.
type Orchestrator struct {
	uow        *stock.UnitOfWork
	ledger     *stock.Ledger
	deliveries repository.DeliveryRepository
	cache      stock.SnapshotCache
	translator ports.Translator
	recorder   ports.DurationRecorder
	log        *logger.Logger
	now        func() time.Time
}

// NewOrchestrator construye el orquestador. deliveries es el repositorio de lectura (pool);
// cache, translator, recorder y log pueden ser nil.
func NewOrchestrator(
	uow *stock.UnitOfWork,
	ledger *stock.Ledger,
	deliveries repository.DeliveryRepository,
	cache stock.SnapshotCache,
	translator ports.Translator,
	recorder ports.DurationRecorder,
	log *logger.Logger,
) *Orchestrator {
	if translator == nil {
		translator = ports.KeyTranslator{}
	}
	if recorder == nil {
		recorder = ports.NopRecorder{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Orchestrator{
		uow:        uow,
		ledger:     ledger,
		deliveries: deliveries,
		cache:      cache,
		translator: translator,
		recorder:   recorder,
		log:        log.Named("delivery"),
		now:        time.Now,
	}
}

// Create registra una entrega IN_PROGRESS y descuenta el stock de sus productos con seguimiento.
func (o *Orchestrator) Create(ctx context.Context, actor Actor, in dto.CreateDeliveryRequest) (resp *dto.DeliveryResponse, err error) {
	start := time.Now()
	defer func() { o.recorder.RecordOperation(ctx, OpCreate, time.Since(start), err) }()

	if actor.UserID == "" {
		return nil, domain.ErrUnauthorizedAccess
	}
	if in.ClientID == "" {
		return nil, domain.ErrInvalidInput
	}
	fromUserID := in.FromUserID
	if fromUserID == "" {
		fromUserID = actor.UserID
	}
	if fromUserID != actor.UserID && !actor.CanActForOthers() {
		return nil, domain.ErrUnauthorizedAccess
	}
	lines, err := domaindelivery.MergeLines(toLines(in.Lines))
	if err != nil {
		return nil, err
	}

	var snapshots []entity.Stock
	d, err := stock.ExecuteWithRetry(ctx, o.uow, func(ctx context.Context, repos repository.Repos) (*entity.Delivery, error) {
		snapshots = nil
		if err := requireUser(ctx, repos, actor.UserID); err != nil {
			return nil, err
		}
		if fromUserID != actor.UserID {
			if err := requireUser(ctx, repos, fromUserID); err != nil {
				return nil, err
			}
		}
		client, err := repos.Client.GetByID(ctx, in.ClientID)
		if err != nil {
			return nil, err
		}
		if client == nil {
			return nil, domain.ErrClientNotFound
		}
		products, err := loadProducts(ctx, repos, lines)
		if err != nil {
			return nil, err
		}

		now := o.now()
		d := &entity.Delivery{
			ID:         uuid.New().String(),
			State:      entity.DeliveryStateInProgress,
			FromUserID: fromUserID,
			ClientID:   client.ID,
			Message:    in.Message,
			Lines:      toEntityLines(lines),
			Notices:    o.notices(actor, lines, products),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		for i := range d.Lines {
			d.Lines[i].DeliveryID = d.ID
		}
		tracked := trackedLines(lines, products)
		snapshots, err = o.applyStock(ctx, repos, actor, d.ID, domaindelivery.Diff(nil, tracked))
		if err != nil {
			return nil, err
		}
		if err := repos.Delivery.Create(ctx, d); err != nil {
			return nil, err
		}
		return d, nil
	})
	if err != nil {
		return nil, err
	}

	stock.RefreshCache(ctx, o.cache, snapshots, o.log)
	o.log.Info().Str("delivery_id", d.ID).Str("user_id", actor.UserID).Int("lines", len(d.Lines)).Msg("entrega creada")
	r := o.toResponse(actor, d)
	return &r, nil
}

// Update reemplaza las líneas de una entrega IN_PROGRESS y reconcilia el stock con la diferencia.
func (o *Orchestrator) Update(ctx context.Context, actor Actor, id string, in dto.UpdateDeliveryRequest) (resp *dto.DeliveryResponse, err error) {
	start := time.Now()
	defer func() { o.recorder.RecordOperation(ctx, OpUpdate, time.Since(start), err) }()

	if id == "" {
		return nil, domain.ErrInvalidInput
	}
	newLines, err := domaindelivery.MergeLines(toLines(in.Lines))
	if err != nil {
		return nil, err
	}

	var snapshots []entity.Stock
	d, err := stock.ExecuteWithRetry(ctx, o.uow, func(ctx context.Context, repos repository.Repos) (*entity.Delivery, error) {
		snapshots = nil
		d, err := repos.Delivery.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if d == nil {
			return nil, domain.ErrDeliveryNotFound
		}
		if !domaindelivery.IsEditable(d.State) {
			return nil, domain.ErrDeliveryLocked
		}
		if in.ClientID != "" && in.ClientID != d.ClientID {
			return nil, domain.ErrCannotChangeRecipient
		}
		if !actor.canManage(d) {
			return nil, domain.ErrUnauthorizedAccess
		}
		// canManage ya cubre al dueño y a create-for-others.
		if in.FromUserID != "" && in.FromUserID != d.FromUserID {
			if err := requireUser(ctx, repos, in.FromUserID); err != nil {
				return nil, err
			}
			d.FromUserID = in.FromUserID
		}

		oldLines := domaindelivery.LinesFromEntity(d.Lines)
		products, err := loadProducts(ctx, repos, newLines)
		if err != nil {
			return nil, err
		}
		// Las líneas anteriores cuyo producto ya no está en el catálogo se tratan como sin seguimiento.
		oldProducts, err := repos.Product.GetByIDs(ctx, productIDs(oldLines))
		if err != nil {
			return nil, err
		}
		for _, p := range oldProducts {
			products[p.ID] = p
		}

		ops := domaindelivery.Diff(trackedLines(oldLines, products), trackedLines(newLines, products))
		snapshots, err = o.applyStock(ctx, repos, actor, d.ID, ops)
		if err != nil {
			return nil, err
		}

		lines := toEntityLines(newLines)
		for i := range lines {
			lines[i].DeliveryID = d.ID
		}
		if err := repos.Delivery.ReplaceLines(ctx, d.ID, lines); err != nil {
			return nil, err
		}
		d.Message = in.Message
		d.Notices = o.notices(actor, newLines, products)
		d.UpdatedAt = o.now()
		if err := repos.Delivery.Update(ctx, d); err != nil {
			return nil, err
		}
		d.Lines = lines
		return d, nil
	})
	if err != nil {
		return nil, err
	}

	stock.RefreshCache(ctx, o.cache, snapshots, o.log)
	o.log.Info().Str("delivery_id", d.ID).Str("user_id", actor.UserID).Msg("entrega actualizada")
	r := o.toResponse(actor, d)
	return &r, nil
}

// Delete borra la entrega y sus líneas. El stock descontado no se devuelve.
func (o *Orchestrator) Delete(ctx context.Context, actor Actor, id string) (err error) {
	start := time.Now()
	defer func() { o.recorder.RecordOperation(ctx, OpDelete, time.Since(start), err) }()

	err = o.uow.Execute(ctx, func(ctx context.Context, repos repository.Repos) error {
		d, err := repos.Delivery.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if d == nil {
			return domain.ErrDeliveryNotFound
		}
		if !actor.canManage(d) {
			return domain.ErrUnauthorizedAccess
		}
		return repos.Delivery.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	o.log.Info().Str("delivery_id", id).Str("user_id", actor.UserID).Msg("entrega eliminada")
	return nil
}

// TransitionDelivery cambia el estado según la máquina de estados. No toca el stock.
func (o *Orchestrator) TransitionDelivery(ctx context.Context, actor Actor, id string, next string) (resp *dto.DeliveryResponse, err error) {
	start := time.Now()
	defer func() { o.recorder.RecordOperation(ctx, OpTransition, time.Since(start), err) }()

	target := entity.DeliveryState(next)
	d, err := stock.ExecuteWithRetry(ctx, o.uow, func(ctx context.Context, repos repository.Repos) (*entity.Delivery, error) {
		d, err := repos.Delivery.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if d == nil {
			return nil, domain.ErrDeliveryNotFound
		}
		if !target.IsValid() || !domaindelivery.CanTransition(d.State, target, actor.CanHandle()) {
			return nil, &domain.InvalidNextStateError{From: string(d.State), To: next}
		}
		if !domaindelivery.RequiresHandlePermission(d.State, target) && !actor.canManage(d) {
			return nil, domain.ErrUnauthorizedAccess
		}
		d.State = target
		d.UpdatedAt = o.now()
		if err := repos.Delivery.Update(ctx, d); err != nil {
			return nil, err
		}
		return d, nil
	})
	if err != nil {
		return nil, err
	}

	o.log.Info().Str("delivery_id", d.ID).Str("state", string(d.State)).Str("user_id", actor.UserID).Msg("estado de entrega cambiado")
	r := o.toResponse(actor, d)
	return &r, nil
}

// Get devuelve una entrega visible para el actor.
func (o *Orchestrator) Get(ctx context.Context, actor Actor, id string) (*dto.DeliveryResponse, error) {
	d, err := o.deliveries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, domain.ErrDeliveryNotFound
	}
	if !actor.canManage(d) && !actor.CanHandle() {
		return nil, domain.ErrUnauthorizedAccess
	}
	r := o.toResponse(actor, d)
	return &r, nil
}

// List devuelve las entregas del actor, o todas si puede actuar por otros o gestionarlas.
func (o *Orchestrator) List(ctx context.Context, actor Actor, page dto.PageRequest) ([]dto.DeliveryResponse, error) {
	page.Normalize()
	var (
		list []*entity.Delivery
		err  error
	)
	if actor.CanActForOthers() || actor.CanHandle() {
		list, err = o.deliveries.ListAll(ctx, page.Limit, page.Offset)
	} else {
		list, err = o.deliveries.ListByUser(ctx, actor.UserID, page.Limit, page.Offset)
	}
	if err != nil {
		return nil, err
	}
	out := make([]dto.DeliveryResponse, 0, len(list))
	for _, d := range list {
		out = append(out, o.toResponse(actor, d))
	}
	return out, nil
}

// applyStock convierte las operaciones del differ en un lote del ledger. Sin operaciones no hay lote.
// Devuelve los snapshots escritos para refrescar la caché tras el commit.
func (o *Orchestrator) applyStock(ctx context.Context, repos repository.Repos, actor Actor, deliveryID string, diff []domaindelivery.SignedOp) ([]entity.Stock, error) {
	if len(diff) == 0 {
		return nil, nil
	}
	reference := o.translator.Translate(actor.UserID, KeyStockReference, deliveryID)
	ops := make([]stock.Operation, 0, len(diff))
	for _, op := range diff {
		ops = append(ops, stock.Operation{
			ProductID: op.ProductID,
			Operation: op.Operation,
			Value:     op.Value,
			Reference: reference,
		})
	}
	return o.ledger.ApplyBulk(ctx, repos, actor.UserID, ops)
}

func (o *Orchestrator) notices(actor Actor, lines []domaindelivery.Line, products map[string]*entity.Product) []string {
	var out []string
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok || p.TrackStock {
			continue
		}
		out = append(out, o.translator.Translate(actor.UserID, KeyNoticeUntracked, p.Name))
	}
	return out
}

func (o *Orchestrator) toResponse(actor Actor, d *entity.Delivery) dto.DeliveryResponse {
	lines := make([]dto.DeliveryLineResponse, 0, len(d.Lines))
	for _, l := range d.Lines {
		lines = append(lines, dto.DeliveryLineResponse{ID: l.ID, ProductID: l.ProductID, Quantity: l.Quantity})
	}
	next := make([]string, 0, 3)
	for _, s := range domaindelivery.NextStates(d.State, actor.CanHandle()) {
		if domaindelivery.RequiresHandlePermission(d.State, s) || actor.canManage(d) {
			next = append(next, string(s))
		}
	}
	notices := d.Notices
	if notices == nil {
		notices = []string{}
	}
	return dto.DeliveryResponse{
		ID:         d.ID,
		State:      string(d.State),
		FromUserID: d.FromUserID,
		ClientID:   d.ClientID,
		Message:    d.Message,
		Lines:      lines,
		Notices:    notices,
		NextStates: next,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func requireUser(ctx context.Context, repos repository.Repos, userID string) error {
	u, err := repos.User.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return domain.ErrUserNotFound
	}
	return nil
}

// loadProducts resuelve los productos de las líneas; cualquiera faltante es ErrProductNotFound.
func loadProducts(ctx context.Context, repos repository.Repos, lines []domaindelivery.Line) (map[string]*entity.Product, error) {
	ids := productIDs(lines)
	found, err := repos.Product.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	products := make(map[string]*entity.Product, len(found))
	for _, p := range found {
		products[p.ID] = p
	}
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			return nil, domain.ErrProductNotFound
		}
	}
	return products, nil
}

func trackedLines(lines []domaindelivery.Line, products map[string]*entity.Product) []domaindelivery.Line {
	out := make([]domaindelivery.Line, 0, len(lines))
	for _, l := range lines {
		if p, ok := products[l.ProductID]; ok && p.TrackStock {
			out = append(out, l)
		}
	}
	return out
}

func productIDs(lines []domaindelivery.Line) []string {
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	sort.Strings(ids)
	return ids
}

func toLines(in []dto.DeliveryLineRequest) []domaindelivery.Line {
	out := make([]domaindelivery.Line, 0, len(in))
	for _, l := range in {
		out = append(out, domaindelivery.Line{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return out
}

func toEntityLines(lines []domaindelivery.Line) []entity.DeliveryLine {
	out := make([]entity.DeliveryLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, entity.DeliveryLine{ID: uuid.New().String(), ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return out
}
