package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"dateblue_server/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fakeDynamo is an in-memory stand-in for the DynamoDB client. It supports
// the slice of the API the services actually use: keyed reads and writes,
// conditional puts and updates, single-equality queries, paginated scans in
// key order, and batch writes.
type fakeDynamo struct {
	mu     sync.Mutex
	tables map[string]*fakeTable

	// scanFailAt injects one transient failure on the Nth Scan call
	// (1-based); 0 disables injection.
	scanFailAt int
	scanCalls  int
}

type fakeTable struct {
	keyAttrs []string
	items    map[string]map[string]types.AttributeValue
}

func newFakeDynamo() *fakeDynamo {
	f := &fakeDynamo{tables: map[string]*fakeTable{}}
	f.addTable(models.UserProfilesTable, "userId")
	f.addTable(models.InteractionsTable, "PK", "SK")
	f.addTable(models.MatchesTable, "matchId")
	f.addTable(models.CleanupJobsTable, "userId")
	return f
}

func (f *fakeDynamo) addTable(name string, keyAttrs ...string) {
	f.tables[name] = &fakeTable{keyAttrs: keyAttrs, items: map[string]map[string]types.AttributeValue{}}
}

func (f *fakeDynamo) table(name *string) *fakeTable {
	return f.tables[aws.ToString(name)]
}

func (t *fakeTable) keyString(item map[string]types.AttributeValue) string {
	parts := make([]string, 0, len(t.keyAttrs))
	for _, attr := range t.keyAttrs {
		if v, ok := item[attr].(*types.AttributeValueMemberS); ok {
			parts = append(parts, v.Value)
		}
	}
	return strings.Join(parts, "/")
}

func (t *fakeTable) keyMap(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	key := map[string]types.AttributeValue{}
	for _, attr := range t.keyAttrs {
		key[attr] = item[attr]
	}
	return key
}

func (t *fakeTable) sortedKeys() []string {
	keys := make([]string, 0, len(t.items))
	for k := range t.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func conditionalCheckFailed() error {
	return &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
}

func checkCondition(condition *string, existing map[string]types.AttributeValue) error {
	if condition == nil {
		return nil
	}
	switch {
	case strings.HasPrefix(*condition, "attribute_not_exists("):
		if existing != nil {
			return conditionalCheckFailed()
		}
	case strings.HasPrefix(*condition, "attribute_exists("):
		if existing == nil {
			return conditionalCheckFailed()
		}
	}
	return nil
}

func resolveName(segment string, names map[string]string) string {
	if strings.HasPrefix(segment, "#") {
		return names[segment]
	}
	return segment
}

// setPath / removePath handle the two path shapes the services use: a plain
// top-level attribute, or one level into a map attribute.
func setPath(item map[string]types.AttributeValue, path string, names map[string]string, value types.AttributeValue) {
	segments := strings.Split(path, ".")
	if len(segments) == 1 {
		item[resolveName(segments[0], names)] = value
		return
	}
	field := resolveName(segments[0], names)
	parent, ok := item[field].(*types.AttributeValueMemberM)
	if !ok {
		parent = &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{}}
		item[field] = parent
	}
	parent.Value[resolveName(segments[1], names)] = value
}

func removePath(item map[string]types.AttributeValue, path string, names map[string]string) {
	segments := strings.Split(path, ".")
	if len(segments) == 1 {
		delete(item, resolveName(segments[0], names))
		return
	}
	field := resolveName(segments[0], names)
	if parent, ok := item[field].(*types.AttributeValueMemberM); ok {
		delete(parent.Value, resolveName(segments[1], names))
	}
}

func (f *fakeDynamo) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	table := f.table(params.TableName)
	item := table.items[table.keyString(params.Key)]
	return &dynamodb.GetItemOutput{Item: item}, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	table := f.table(params.TableName)
	key := table.keyString(params.Item)
	if err := checkCondition(params.ConditionExpression, table.items[key]); err != nil {
		return nil, err
	}
	table.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	table := f.table(params.TableName)
	key := table.keyString(params.Key)
	item := table.items[key]
	if err := checkCondition(params.ConditionExpression, item); err != nil {
		return nil, err
	}
	if item == nil {
		item = map[string]types.AttributeValue{}
		for attr, value := range params.Key {
			item[attr] = value
		}
		table.items[key] = item
	}

	expression := aws.ToString(params.UpdateExpression)
	switch {
	case strings.HasPrefix(expression, "SET "):
		for _, assignment := range strings.Split(strings.TrimPrefix(expression, "SET "), ",") {
			parts := strings.SplitN(assignment, "=", 2)
			if len(parts) != 2 {
				return nil, errors.New("fakeDynamo: malformed SET expression: " + expression)
			}
			path := strings.TrimSpace(parts[0])
			valueRef := strings.TrimSpace(parts[1])
			value, ok := params.ExpressionAttributeValues[valueRef]
			if !ok {
				return nil, errors.New("fakeDynamo: missing expression value " + valueRef)
			}
			setPath(item, path, params.ExpressionAttributeNames, value)
		}
	case strings.HasPrefix(expression, "REMOVE "):
		for _, path := range strings.Split(strings.TrimPrefix(expression, "REMOVE "), ",") {
			removePath(item, strings.TrimSpace(path), params.ExpressionAttributeNames)
		}
	default:
		return nil, errors.New("fakeDynamo: unsupported update expression: " + expression)
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	table := f.table(params.TableName)
	delete(table.items, table.keyString(params.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	table := f.table(params.TableName)
	condition := aws.ToString(params.KeyConditionExpression)
	parts := strings.SplitN(condition, "=", 2)
	if len(parts) != 2 {
		return nil, errors.New("fakeDynamo: unsupported key condition: " + condition)
	}
	field := resolveName(strings.TrimSpace(parts[0]), params.ExpressionAttributeNames)
	value, ok := params.ExpressionAttributeValues[strings.TrimSpace(parts[1])]
	if !ok {
		return nil, errors.New("fakeDynamo: missing expression value in " + condition)
	}
	want, ok := value.(*types.AttributeValueMemberS)
	if !ok {
		return nil, errors.New("fakeDynamo: only string key conditions are supported")
	}

	var matchKeys []string
	for _, key := range table.sortedKeys() {
		if got, ok := table.items[key][field].(*types.AttributeValueMemberS); ok && got.Value == want.Value {
			matchKeys = append(matchKeys, key)
		}
	}

	start := 0
	if len(params.ExclusiveStartKey) > 0 {
		after := table.keyString(params.ExclusiveStartKey)
		for i, key := range matchKeys {
			if key > after {
				start = i
				break
			}
			start = i + 1
		}
	}
	matchKeys = matchKeys[start:]

	limit := len(matchKeys)
	if params.Limit != nil && int(*params.Limit) < limit {
		limit = int(*params.Limit)
	}

	output := &dynamodb.QueryOutput{}
	for _, key := range matchKeys[:limit] {
		output.Items = append(output.Items, table.items[key])
	}
	if limit < len(matchKeys) && limit > 0 {
		output.LastEvaluatedKey = table.keyMap(table.items[matchKeys[limit-1]])
	}
	return output, nil
}

func (f *fakeDynamo) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.scanCalls++
	if f.scanFailAt > 0 && f.scanCalls == f.scanFailAt {
		f.scanFailAt = 0
		return nil, errors.New("fakeDynamo: injected transient scan failure")
	}

	table := f.table(params.TableName)
	keys := table.sortedKeys()

	start := 0
	if len(params.ExclusiveStartKey) > 0 {
		after := table.keyString(params.ExclusiveStartKey)
		for i, key := range keys {
			if key > after {
				start = i
				break
			}
			start = i + 1
		}
	}
	keys = keys[start:]

	limit := len(keys)
	if params.Limit != nil && int(*params.Limit) < limit {
		limit = int(*params.Limit)
	}

	output := &dynamodb.ScanOutput{}
	for _, key := range keys[:limit] {
		output.Items = append(output.Items, table.items[key])
	}
	if limit < len(keys) && limit > 0 {
		output.LastEvaluatedKey = table.keyMap(table.items[keys[limit-1]])
	}
	return output, nil
}

func (f *fakeDynamo) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for tableName, requests := range params.RequestItems {
		table := f.tables[tableName]
		for _, request := range requests {
			if request.PutRequest != nil {
				table.items[table.keyString(request.PutRequest.Item)] = request.PutRequest.Item
			}
			if request.DeleteRequest != nil {
				delete(table.items, table.keyString(request.DeleteRequest.Key))
			}
		}
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

// count returns how many items a table holds.
func (f *fakeDynamo) count(tableName string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tables[tableName].items)
}

// fakeBucket is an in-memory object store implementing S3API.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string]struct{}
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string]struct{}{}}
}

func (b *fakeBucket) put(keys ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, key := range keys {
		b.objects[key] = struct{}{}
	}
}

func (b *fakeBucket) keysWithPrefix(prefix string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var keys []string
	for key := range b.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func (b *fakeBucket) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	keys := b.keysWithPrefix(aws.ToString(params.Prefix))
	output := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, key := range keys {
		output.Contents = append(output.Contents, s3types.Object{Key: aws.String(key)})
	}
	return output, nil
}

func (b *fakeBucket) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

// recordingPusher captures every payload the notifier hands to the push
// collaborator.
type recordingPusher struct {
	mu   sync.Mutex
	sent []sentPush
}

type sentPush struct {
	subscription string
	payload      models.PushPayload
}

func (p *recordingPusher) Send(ctx context.Context, subscription string, payload models.PushPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, sentPush{subscription: subscription, payload: payload})
	return nil
}

func (p *recordingPusher) byType(pushType string) []sentPush {
	p.mu.Lock()
	defer p.mu.Unlock()
	var matching []sentPush
	for _, s := range p.sent {
		if s.payload.Data.Type == pushType {
			matching = append(matching, s)
		}
	}
	return matching
}

// goneSender always reports the subscription as permanently invalid.
type goneSender struct{}

func (goneSender) Send(ctx context.Context, subscription string, payload models.PushPayload) error {
	return ErrSubscriptionGone
}

// testEnv wires the services against the in-memory fakes.
type testEnv struct {
	dynamo       *fakeDynamo
	bucket       *fakeBucket
	pusher       *recordingPusher
	profiles     *UserProfileService
	matches      *MatchService
	notifier     *NotificationService
	interactions *InteractionService
	cleanup      *CleanupService
}

func newTestEnv() *testEnv {
	fake := newFakeDynamo()
	bucket := newFakeBucket()
	pusher := &recordingPusher{}

	dynamo := &DynamoService{Client: fake}
	profiles := &UserProfileService{Dynamo: dynamo}
	matches := &MatchService{Dynamo: dynamo}
	notifier := &NotificationService{Profiles: profiles, Sender: pusher}
	interactions := &InteractionService{Dynamo: dynamo, Profiles: profiles, Matches: matches, Notifier: notifier}
	storage := &S3Service{Client: bucket, Bucket: "dateblue-test"}
	cleanup := &CleanupService{Dynamo: dynamo, Profiles: profiles, Matches: matches, Storage: storage}

	return &testEnv{
		dynamo:       fake,
		bucket:       bucket,
		pusher:       pusher,
		profiles:     profiles,
		matches:      matches,
		notifier:     notifier,
		interactions: interactions,
		cleanup:      cleanup,
	}
}

// like records an interaction and runs the trigger for it, the way the
// controller does.
func (e *testEnv) like(ctx context.Context, senderID, receiverID string) (*models.Interaction, error) {
	interaction, _, err := e.interactions.RecordInteraction(ctx, senderID, receiverID, models.ActionLike)
	if err != nil {
		return nil, err
	}
	e.interactions.ProcessInteractionCreated(ctx, interaction)
	return interaction, nil
}
