/**
 * 服务层:客户端注册表
 * @author: sun977
 * @date: 2025.11.09
 * @description: 已认证Agent的connection identity与逻辑ID映射，内存缓存+持久化双写
 * @func: NewClientRegistry、Upsert、Resolve、ListAll、Count
 */
package hub

import (
	"errors"
	"sort"
	"sync"
	"time"

	hubModel "neohub/internal/model/hub"
	"neohub/internal/model/system"
	"neohub/internal/pkg/logger"
)

// ClientRegistry 客户端注册表
// 以client_id为键，重连后identity变化时以最新注册覆盖(newest wins)
type ClientRegistry struct {
	mu    sync.RWMutex
	cache map[string]*hubModel.Client // clientID -> 客户端
	store Store
}

// NewClientRegistry 创建客户端注册表
func NewClientRegistry(store Store) *ClientRegistry {
	return &ClientRegistry{
		cache: make(map[string]*hubModel.Client),
		store: store,
	}
}

// Upsert 注册或刷新一个客户端，返回是否为首次注册
// identity每次注册都覆盖为最新值，last_seen总是刷新，空主机名不覆盖已有值；
// 每次注册都尝试落库，存储不可达时仅内存生效
func (r *ClientRegistry) Upsert(identity []byte, clientID, hostname string) bool {
	now := time.Now().UTC()

	r.mu.Lock()
	existing, ok := r.cache[clientID]
	if ok {
		existing.Identity = identity
		existing.LastSeen = now
		if hostname != "" {
			existing.Hostname = hostname
		}
	} else {
		r.cache[clientID] = &hubModel.Client{
			Identity: identity,
			ClientID: clientID,
			Hostname: hostname,
			LastSeen: now,
		}
	}
	r.mu.Unlock()

	if err := r.store.UpsertClient(clientID, identity, hostname); err != nil {
		logger.LogError(err, "client_registry", "upsert_persist", map[string]any{
			"client_id": clientID,
		})
	}
	return !ok
}

// Resolve 按客户端ID解析传输层identity
// 优先内存缓存，缓存未命中时查存储并回填(进程重启后恢复映射)；
// 未找到返回 system.ErrClientNotFound
func (r *ClientRegistry) Resolve(clientID string) ([]byte, error) {
	r.mu.RLock()
	if client, ok := r.cache[clientID]; ok && len(client.Identity) > 0 {
		identity := client.Identity
		r.mu.RUnlock()
		return identity, nil
	}
	r.mu.RUnlock()

	identity, err := r.store.GetClientByID(clientID)
	if err != nil {
		if errors.Is(err, system.ErrClientNotFound) || errors.Is(err, system.ErrStoreUnavailable) {
			return nil, system.ErrClientNotFound
		}
		return nil, err
	}

	// 回填缓存，后续解析不再查库
	r.mu.Lock()
	if _, ok := r.cache[clientID]; !ok {
		r.cache[clientID] = &hubModel.Client{
			Identity: identity,
			ClientID: clientID,
			LastSeen: time.Now().UTC(),
		}
	}
	r.mu.Unlock()
	return identity, nil
}

// ListAll 查询全部客户端(按最后注册时间倒序)
// 优先走存储，不可达时降级到内存缓存
func (r *ClientRegistry) ListAll() []*hubModel.Client {
	if clients, err := r.store.GetAllClients(); err == nil {
		return clients
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*hubModel.Client, 0, len(r.cache))
	for _, client := range r.cache {
		clients = append(clients, client.Clone())
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].LastSeen.After(clients[j].LastSeen)
	})
	return clients
}

// Count 客户端数量(存储不可达时取内存缓存数量)
func (r *ClientRegistry) Count() int64 {
	if count, err := r.store.CountClients(); err == nil {
		return count
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.cache))
}
