/**
 * 服务层测试:内存假件
 * @author: sun977
 * @date: 2025.11.09
 * @description: 测试用的内存Store与Transport实现
 * @func: newFakeStore、newFakeTransport
 */
package hub

import (
	"encoding/json"
	"sort"
	"sync"

	hubModel "neohub/internal/model/hub"
	"neohub/internal/model/system"
)

// fakeStore Store接口的内存实现
// connected=false时所有方法返回 system.ErrStoreUnavailable，模拟存储不可达
type fakeStore struct {
	mu        sync.Mutex
	connected bool

	clients     map[string]*hubModel.Client
	tasks       map[string]*hubModel.Task
	chunks      []*hubModel.OutputChunk
	events      []*hubModel.ClientLogEntry
	results     map[string]*hubModel.AggregatedOutput
	apiKeys     map[string]*hubModel.APIKeyUser
	chunkErr    error // 非nil时InsertOutputChunk返回该错误
	resultCalls int   // InsertAggregatedOutput调用计数
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		connected: true,
		clients:   make(map[string]*hubModel.Client),
		tasks:     make(map[string]*hubModel.Task),
		results:   make(map[string]*hubModel.AggregatedOutput),
		apiKeys:   make(map[string]*hubModel.APIKeyUser),
	}
}

func (s *fakeStore) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *fakeStore) setConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = connected
}

func (s *fakeStore) UpsertClient(clientID string, identity []byte, hostname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return system.ErrStoreUnavailable
	}
	client, ok := s.clients[clientID]
	if !ok {
		client = &hubModel.Client{ClientID: clientID}
		s.clients[clientID] = client
	}
	client.Identity = identity
	if hostname != "" {
		client.Hostname = hostname
	}
	return nil
}

func (s *fakeStore) GetClientByID(clientID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil, system.ErrStoreUnavailable
	}
	client, ok := s.clients[clientID]
	if !ok {
		return nil, system.ErrClientNotFound
	}
	return client.Identity, nil
}

func (s *fakeStore) GetAllClients() ([]*hubModel.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil, system.ErrStoreUnavailable
	}
	var out []*hubModel.Client
	for _, c := range s.clients {
		out = append(out, c.Clone())
	}
	return out, nil
}

func (s *fakeStore) CountClients() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return 0, system.ErrStoreUnavailable
	}
	return int64(len(s.clients)), nil
}

func (s *fakeStore) InsertTask(task *hubModel.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return system.ErrStoreUnavailable
	}
	if _, ok := s.tasks[task.ID]; ok {
		return nil
	}
	s.tasks[task.ID] = task.Clone()
	return nil
}

func (s *fakeStore) UpdateTaskStatus(taskID string, status hubModel.TaskStatus, update hubModel.TaskStatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return system.ErrStoreUnavailable
	}
	task, ok := s.tasks[taskID]
	if !ok {
		return nil
	}
	task.Status = status
	if update.StartedAt != nil {
		task.StartedAt = update.StartedAt
	}
	if update.CompletedAt != nil {
		task.CompletedAt = update.CompletedAt
	}
	if update.ExitCode != nil {
		task.ExitCode = update.ExitCode
	}
	return nil
}

func (s *fakeStore) GetTask(taskID string) (*hubModel.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil, system.ErrStoreUnavailable
	}
	task, ok := s.tasks[taskID]
	if !ok {
		return nil, system.ErrTaskNotFound
	}
	return task.Clone(), nil
}

func (s *fakeStore) GetAllTasks(limit int64) ([]*hubModel.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil, system.ErrStoreUnavailable
	}
	var out []*hubModel.Task
	for _, t := range s.tasks {
		out = append(out, t.Clone())
	}
	return out, nil
}

func (s *fakeStore) CountTasks() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return 0, system.ErrStoreUnavailable
	}
	return int64(len(s.tasks)), nil
}

func (s *fakeStore) InsertOutputChunk(chunk *hubModel.OutputChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return system.ErrStoreUnavailable
	}
	if s.chunkErr != nil {
		return s.chunkErr
	}
	c := *chunk
	s.chunks = append(s.chunks, &c)
	return nil
}

func (s *fakeStore) InsertClientEvent(clientID, eventType string, details map[string]any, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return system.ErrStoreUnavailable
	}
	s.events = append(s.events, &hubModel.ClientLogEntry{
		ClientID:  clientID,
		TaskID:    taskID,
		LogType:   hubModel.LogTypeEvent,
		EventType: eventType,
		Details:   details,
	})
	return nil
}

func (s *fakeStore) GetClientLogs(clientID string, limit int64) ([]*hubModel.ClientLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil, system.ErrStoreUnavailable
	}
	var out []*hubModel.ClientLogEntry
	for _, e := range s.events {
		if e.ClientID == clientID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeStore) GetTaskChunks(taskID string) ([]*hubModel.OutputChunk, error) {
	return s.GetTaskChunksAfter(taskID, -1)
}

func (s *fakeStore) GetTaskChunksAfter(taskID string, afterSeq int) ([]*hubModel.OutputChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil, system.ErrStoreUnavailable
	}
	var out []*hubModel.OutputChunk
	for _, c := range s.chunks {
		if c.TaskID == taskID && c.Seq > afterSeq {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (s *fakeStore) InsertAggregatedOutput(result *hubModel.AggregatedOutput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return system.ErrStoreUnavailable
	}
	s.resultCalls++
	if _, ok := s.results[result.TaskID]; ok {
		return nil
	}
	r := *result
	s.results[result.TaskID] = &r
	return nil
}

func (s *fakeStore) GetAggregatedOutput(taskID string) (*hubModel.AggregatedOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil, system.ErrStoreUnavailable
	}
	result, ok := s.results[taskID]
	if !ok {
		return nil, system.ErrResultNotFound
	}
	r := *result
	return &r, nil
}

func (s *fakeStore) GetClientResults(clientID string) ([]*hubModel.AggregatedOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil, system.ErrStoreUnavailable
	}
	var out []*hubModel.AggregatedOutput
	for _, r := range s.results {
		if r.ClientID == clientID {
			rr := *r
			out = append(out, &rr)
		}
	}
	return out, nil
}

func (s *fakeStore) ValidateAPIKey(apiKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return false, system.ErrStoreUnavailable
	}
	_, ok := s.apiKeys[apiKey]
	return ok, nil
}

func (s *fakeStore) GetUserByAPIKey(apiKey string) (*hubModel.APIKeyUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil, system.ErrStoreUnavailable
	}
	user, ok := s.apiKeys[apiKey]
	if !ok {
		return nil, nil
	}
	return user, nil
}

// insertResultCalls 聚合结果写入次数(验证at-most-once)
func (s *fakeStore) insertResultCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resultCalls
}

// sentMessage 假传输记录的一条出站消息
type sentMessage struct {
	identity []byte
	payload  []byte
}

// fakeTransport Transport接口的内存实现，记录全部出站消息
type fakeTransport struct {
	mu    sync.Mutex
	sent  []sentMessage
	inbox chan [][]byte
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{inbox: make(chan [][]byte, 64)}
}

func (t *fakeTransport) Recv() ([][]byte, error) {
	return <-t.inbox, nil
}

func (t *fakeTransport) Send(identity, payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, sentMessage{identity: identity, payload: payload})
	return nil
}

// lastSent 最后一条出站消息解码为map
func (t *fakeTransport) lastSent() map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.sent) == 0 {
		return nil
	}
	var decoded map[string]any
	_ = json.Unmarshal(t.sent[len(t.sent)-1].payload, &decoded)
	return decoded
}

// sentCount 出站消息总数
func (t *fakeTransport) sentCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sent)
}
