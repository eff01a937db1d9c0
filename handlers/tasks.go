package handlers

import (
	"sort"
	"sync"

	"github.com/SilentEigen/pdf-hindi-translator/models"
)

// TaskManager 管理所有用户的任务
type TaskManager struct {
	// sessionID -> taskID -> task
	userTasks map[string]map[string]*models.TranslateTask
	mu        sync.RWMutex
}

// NewTaskManager 创建任务管理器
func NewTaskManager() *TaskManager {
	return &TaskManager{
		userTasks: make(map[string]map[string]*models.TranslateTask),
	}
}

// AddTask 为用户添加任务
func (tm *TaskManager) AddTask(sessionID string, task *models.TranslateTask) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.userTasks[sessionID] == nil {
		tm.userTasks[sessionID] = make(map[string]*models.TranslateTask)
	}
	tm.userTasks[sessionID][task.ID] = task
}

// GetTask 获取用户任务的快照
func (tm *TaskManager) GetTask(sessionID, taskID string) (models.TranslateTask, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	if userTasks, exists := tm.userTasks[sessionID]; exists {
		if task, found := userTasks[taskID]; found {
			return snapshot(task), true
		}
	}
	return models.TranslateTask{}, false
}

// GetUserTasks 获取用户的所有任务，按创建时间倒序
func (tm *TaskManager) GetUserTasks(sessionID string) []models.TranslateTask {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	userTasks := tm.userTasks[sessionID]
	tasks := make([]models.TranslateTask, 0, len(userTasks))
	for _, task := range userTasks {
		tasks = append(tasks, snapshot(task))
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks
}

// UpdateTask 更新任务（用于更新进度等）
func (tm *TaskManager) UpdateTask(sessionID, taskID string, updateFn func(*models.TranslateTask)) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if userTasks, exists := tm.userTasks[sessionID]; exists {
		if task, found := userTasks[taskID]; found {
			updateFn(task)
		}
	}
}

// RemoveTask 删除任务，返回被删除的任务
func (tm *TaskManager) RemoveTask(sessionID, taskID string) (models.TranslateTask, bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	userTasks := tm.userTasks[sessionID]
	task, found := userTasks[taskID]
	if !found {
		return models.TranslateTask{}, false
	}
	delete(userTasks, taskID)
	if len(userTasks) == 0 {
		delete(tm.userTasks, sessionID)
	}
	return snapshot(task), true
}

func snapshot(task *models.TranslateTask) models.TranslateTask {
	cp := *task
	if task.SkippedPages != nil {
		cp.SkippedPages = append([]int(nil), task.SkippedPages...)
	}
	return cp
}
